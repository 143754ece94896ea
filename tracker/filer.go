package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/hitarthk9/ai-bug-reporter/analysis"
	"github.com/hitarthk9/ai-bug-reporter/clients"
	"github.com/hitarthk9/ai-bug-reporter/config"
	"github.com/hitarthk9/ai-bug-reporter/report"
)

const (
	DefaultCreateTimeout = 30 * time.Second
	defaultSummary       = "QA Bug"
)

type IssueCreator interface {
	CreateIssue(ctx context.Context, payload []byte) (*clients.TrackerResponse, error)
}

type AttachmentUploader interface {
	Upload(ctx context.Context, issueKey, path string) Outcome
}

// Issue is a ticket that was created for the bug at Index.
type Issue struct {
	Index      int      `json:"index" yaml:"index"`
	Key        string   `json:"key" yaml:"key"`
	Summary    string   `json:"summary" yaml:"summary"`
	Attachment *Outcome `json:"attachment,omitempty" yaml:"attachment,omitempty"`
}

// Filer creates one tracker issue per bug and attaches the bug's clip.
type Filer struct {
	Jira          config.Jira
	Tracker       IssueCreator
	Uploader      AttachmentUploader
	CreateTimeout time.Duration
	Log           logrus.FieldLogger
}

func NewFiler(cfg config.Jira, tracker IssueCreator, uploader AttachmentUploader) *Filer {
	return &Filer{Jira: cfg, Tracker: tracker, Uploader: uploader, CreateTimeout: DefaultCreateTimeout}
}

// File never fails as a whole. Each failed bug adds one report entry and
// the remaining bugs are still filed. clips maps bug index to a clip path.
func (f *Filer) File(ctx context.Context, bugs []analysis.BugRecord, clips map[int]string) ([]Issue, report.Report) {
	var rep report.Report
	if missing := f.Jira.Missing(); len(missing) > 0 {
		rep.Errorf("Missing Jira environment variables: %s", strings.Join(missing, ", "))
		return nil, rep
	}

	var issues []Issue
	for i, bug := range bugs {
		issue, err := f.fileOne(ctx, i, bug, clips[i], &rep)
		if err != nil {
			f.log().WithField("bug", i).WithError(err).Error("filing failed")
			rep.Errorf("%v", err)
			continue
		}
		if issue != nil {
			issues = append(issues, *issue)
		}
	}
	return issues, rep
}

func (f *Filer) fileOne(ctx context.Context, idx int, bug analysis.BugRecord, clip string, rep *report.Report) (issue *Issue, err error) {
	defer func() {
		if r := recover(); r != nil {
			issue, err = nil, fmt.Errorf("panic while filing bug %d: %v", idx, r)
		}
	}()

	payload, err := Payload(f.Jira, bug)
	if err != nil {
		return nil, fmt.Errorf("build payload for bug %d: %w", idx, err)
	}

	resp, err := f.create(ctx, payload)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		rep.HTTP(resp.Status, string(resp.Body))
		return nil, nil
	}

	issue = &Issue{Index: idx, Key: gjson.GetBytes(resp.Body, "key").String(), Summary: summaryOf(bug)}
	log := f.log().WithFields(logrus.Fields{"bug": idx, "issue": issue.Key})
	log.Info("issue created")

	if issue.Key == "" || clip == "" || f.Uploader == nil {
		return issue, nil
	}
	if _, err := os.Stat(clip); err != nil {
		log.WithField("clip", clip).Debug("clip gone, skipping attachment")
		return issue, nil
	}
	out := f.Uploader.Upload(ctx, issue.Key, clip)
	issue.Attachment = &out
	if !out.OK {
		log.WithField("reason", out.Message).Warn("attachment failed")
		rep.Warnf("Failed to attach video to %s: %s", issue.Key, out.Message)
	}
	return issue, nil
}

func (f *Filer) create(ctx context.Context, payload []byte) (*clients.TrackerResponse, error) {
	timeout := f.CreateTimeout
	if timeout <= 0 {
		timeout = DefaultCreateTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return f.Tracker.CreateIssue(ctx, payload)
}

// Payload renders the create-issue body for bug.
func Payload(cfg config.Jira, bug analysis.BugRecord) ([]byte, error) {
	desc, err := json.Marshal(TextToADF(bug.Description))
	if err != nil {
		return nil, err
	}
	issueType := cfg.IssueType
	if issueType == "" {
		issueType = "Bug"
	}
	priority := bug.Priority
	if priority == "" {
		priority = analysis.PriorityMedium
	}

	body := []byte(`{}`)
	for _, kv := range [][2]string{
		{"fields.project.key", cfg.Project},
		{"fields.summary", summaryOf(bug)},
		{"fields.issuetype.name", issueType},
		{"fields.priority.name", string(priority)},
	} {
		if body, err = sjson.SetBytes(body, kv[0], kv[1]); err != nil {
			return nil, err
		}
	}
	return sjson.SetRawBytes(body, "fields.description", desc)
}

func summaryOf(bug analysis.BugRecord) string {
	if s := strings.TrimSpace(bug.Summary); s != "" {
		return bug.Summary
	}
	return defaultSummary
}

func (f *Filer) log() logrus.FieldLogger {
	if f.Log != nil {
		return f.Log
	}
	return logrus.StandardLogger()
}
