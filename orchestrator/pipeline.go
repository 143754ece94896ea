package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/hitarthk9/ai-bug-reporter/analysis"
	"github.com/hitarthk9/ai-bug-reporter/clients"
	cfg "github.com/hitarthk9/ai-bug-reporter/config"
	"github.com/hitarthk9/ai-bug-reporter/media"
	"github.com/hitarthk9/ai-bug-reporter/tracker"
)

// Deps are the collaborators a Pipeline drives.
type Deps struct {
	STT       Transcriber
	Media     Media
	Extractor BugExtractor
	Filer     IssueFiler
	Log       logrus.FieldLogger
}

type Pipeline struct {
	stt        Transcriber
	media      Media
	extractor  BugExtractor
	filer      IssueFiler
	log        logrus.FieldLogger
	padding    float64
	defaultLen float64
	now        func() time.Time
}

// NewPipeline wires the production collaborators from configuration. The
// self-hosted ASR service is used when services.asr.url is set, Whisper
// otherwise.
func NewPipeline(c *cfg.Root, log logrus.FieldLogger) *Pipeline {
	oa := clients.NewOpenAI(c.OpenAI.APIKey, c.OpenAI.BaseURL, c.OpenAI.TranscriptionModel)

	var stt Transcriber = oa
	if c.Services.ASR.URL != "" {
		stt = clients.ASRService{HTTP: clients.NewHTTP(), URL: c.Services.ASR.URL}
	}

	ff := media.New(c.Media.FFmpegPath, c.Media.TmpDir)
	ff.Log = log

	x := analysis.NewExtractor(oa, c.OpenAI.Model)
	x.Temperature = c.OpenAI.Temperature
	x.MaxTranscript = c.OpenAI.MaxTranscript
	x.Log = log

	jira := clients.NewJira(c.Jira.URL, c.Jira.Email, c.Jira.Token)
	up := tracker.NewUploader(jira, c.Attachments.MaxRetries, c.Attachments.MaxBytes)
	up.Log = log
	f := tracker.NewFiler(c.Jira, jira, up)
	f.Log = log

	p := NewPipelineWith(Deps{STT: stt, Media: ff, Extractor: x, Filer: f, Log: log})
	p.padding = c.Media.PaddingSec
	p.defaultLen = c.Media.DefaultClipSec
	return p
}

func NewPipelineWith(d Deps) *Pipeline {
	log := d.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Pipeline{
		stt:        d.STT,
		media:      d.Media,
		extractor:  d.Extractor,
		filer:      d.Filer,
		log:        log,
		padding:    DefaultPadding,
		defaultLen: DefaultClipLen,
		now:        time.Now,
	}
}

// Run takes one video through transcription, bug extraction, clipping and
// filing. Only media, transcription and model failures abort the run; every
// per-bug problem lands in Result.Report.
func (p *Pipeline) Run(ctx context.Context, videoPath string, opts RunOptions) (*Result, error) {
	res := &Result{RunID: uuid.NewString(), Video: videoPath}
	log := p.log.WithField("run_id", res.RunID)

	text, lang, err := p.transcribe(ctx, log, videoPath)
	if err != nil {
		return nil, err
	}
	res.Transcript, res.Language = text, lang

	res.Bugs, err = p.extractor.Bugs(ctx, text)
	if err != nil {
		return nil, err
	}

	clips, clipRep := p.planClips(ctx, log, videoPath, res.Bugs)
	res.Clips = clips
	res.Report.Append(clipRep...)
	res.Summary = fmt.Sprintf("found %d bug(s), extracted %d clip(s)", len(res.Bugs), len(res.Clips))
	log.Info(res.Summary)

	if !opts.NoFile && len(res.Bugs) > 0 {
		issues, fileRep := p.filer.File(ctx, res.Bugs, res.ClipPaths())
		res.Issues = issues
		res.Report.Append(fileRep...)
		failures, warnings := fileRep.Counts()
		log.WithFields(logrus.Fields{"issues": len(issues), "failures": failures, "warnings": warnings}).Info("filing done")
	}

	if opts.OutDir != "" {
		dir, err := persist(opts.OutDir, p.now(), res)
		if err != nil {
			return res, fmt.Errorf("write session bundle: %w", err)
		}
		res.SessionDir = dir
		log.WithField("dir", dir).Info("session bundle written")
	}
	return res, nil
}

// Candidates runs the candidate-seconds pass instead of full extraction.
func (p *Pipeline) Candidates(ctx context.Context, videoPath string) (*CandidatesResult, error) {
	res := &CandidatesResult{RunID: uuid.NewString(), Video: videoPath}
	log := p.log.WithField("run_id", res.RunID)

	text, _, err := p.transcribe(ctx, log, videoPath)
	if err != nil {
		return nil, err
	}
	res.Transcript = text

	res.Report, err = p.extractor.Candidates(ctx, text)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (p *Pipeline) transcribe(ctx context.Context, log logrus.FieldLogger, videoPath string) (string, string, error) {
	audio, err := p.media.ExtractAudio(ctx, videoPath)
	if err != nil {
		return "", "", err
	}
	log.WithField("audio", audio).Debug("audio extracted")

	tr, err := p.stt.Transcribe(ctx, audio)
	if err != nil {
		return "", "", fmt.Errorf("transcribe: %w", err)
	}
	log.WithFields(logrus.Fields{"segments": len(tr.Segments), "language": tr.Language}).Info("transcription done")
	return tr.Timestamped(), tr.Language, nil
}
