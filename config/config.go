package config

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type Service struct {
	URL string `yaml:"url"`
}
type Services struct {
	// ASR is an optional self-hosted speech-to-text service; OpenAI is used when empty.
	ASR Service `yaml:"asr"`
}
type OpenAI struct {
	APIKey             string  `yaml:"api_key"`
	BaseURL            string  `yaml:"base_url"`
	Model              string  `yaml:"model"`
	TranscriptionModel string  `yaml:"transcription_model"`
	Temperature        float64 `yaml:"temperature"`
	MaxTranscript      int     `yaml:"max_transcript_chars"`
}
type Media struct {
	FFmpegPath     string  `yaml:"ffmpeg_path"`
	TmpDir         string  `yaml:"tmp_dir"`
	PaddingSec     float64 `yaml:"clip_padding_sec"`
	DefaultClipSec float64 `yaml:"default_clip_sec"`
}
type Jira struct {
	URL       string `yaml:"url"`
	Email     string `yaml:"email"`
	Token     string `yaml:"token"`
	Project   string `yaml:"project"`
	IssueType string `yaml:"issue_type"`
}
type Attachments struct {
	MaxRetries int   `yaml:"max_retries"`
	MaxBytes   int64 `yaml:"max_bytes"`
}
type Root struct {
	Pipeline struct {
		Name      string `yaml:"name"`
		Version   string `yaml:"version"`
		LogLvl    string `yaml:"log_level"`
		LogFormat string `yaml:"log_format"`
	} `yaml:"pipeline"`
	OpenAI      OpenAI      `yaml:"openai"`
	Services    Services    `yaml:"services"`
	Media       Media       `yaml:"media"`
	Jira        Jira        `yaml:"jira"`
	Attachments Attachments `yaml:"attachments"`
	Paths       struct {
		Outputs string `yaml:"outputs"`
	} `yaml:"paths"`
}

// Missing names the tracker settings that are not set.
func (j Jira) Missing() []string {
	var out []string
	for _, kv := range []struct{ key, val string }{
		{"JIRA_URL", j.URL},
		{"JIRA_EMAIL", j.Email},
		{"JIRA_TOKEN", j.Token},
		{"JIRA_PROJECT", j.Project},
	} {
		if strings.TrimSpace(kv.val) == "" {
			out = append(out, kv.key)
		}
	}
	return out
}

// Load reads the yaml config and overlays .env and the process environment.
// An empty path falls back to config/<CONFIG_ENV>/config.yaml.
func Load(path string) (*Root, error) {
	return LoadFrom(path, ".env")
}

func LoadFrom(path, dotenv string) (*Root, error) {
	var cfg Root
	if err := decodeFile(&cfg, path); err != nil {
		return nil, err
	}

	v := viper.New()
	if dotenv != "" {
		v.SetConfigFile(dotenv)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil && !isNotExist(err) {
			return nil, err
		}
	}
	v.AutomaticEnv()
	overlay(&cfg, v)

	applyDefaults(&cfg)
	return &cfg, nil
}

func decodeFile(cfg *Root, path string) error {
	guess := []string{path}
	if path == "" {
		env := os.Getenv("CONFIG_ENV")
		if env == "" {
			env = "dev"
		}
		guess = []string{
			filepath.Join("config", env, "config.yaml"),
			"config.yaml",
		}
	}
	for _, p := range guess {
		f, err := os.Open(p)
		if err != nil {
			if path != "" {
				return err
			}
			continue
		}
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	}
	return nil
}

func overlay(cfg *Root, v *viper.Viper) {
	set := func(dst *string, key string) {
		if s := strings.TrimSpace(v.GetString(key)); s != "" {
			*dst = s
		}
	}
	set(&cfg.OpenAI.APIKey, "OPENAI_API_KEY")
	set(&cfg.OpenAI.BaseURL, "OPENAI_BASE_URL")
	set(&cfg.OpenAI.Model, "OPENAI_MODEL")
	set(&cfg.Media.FFmpegPath, "FFMPEG_PATH")
	set(&cfg.Jira.URL, "JIRA_URL")
	set(&cfg.Jira.Email, "JIRA_EMAIL")
	set(&cfg.Jira.Token, "JIRA_TOKEN")
	set(&cfg.Jira.Project, "JIRA_PROJECT")
	set(&cfg.Services.ASR.URL, "ASR_URL")
	set(&cfg.Paths.Outputs, "OUTPUTS_DIR")
	set(&cfg.Pipeline.LogLvl, "LOG_LEVEL")
}

func applyDefaults(cfg *Root) {
	if cfg.Pipeline.Name == "" {
		cfg.Pipeline.Name = "ai-bug-reporter"
	}
	if cfg.OpenAI.Model == "" {
		cfg.OpenAI.Model = "gpt-4o-mini"
	}
	if cfg.OpenAI.TranscriptionModel == "" {
		cfg.OpenAI.TranscriptionModel = "whisper-1"
	}
	if cfg.OpenAI.Temperature == 0 {
		cfg.OpenAI.Temperature = 0.2
	}
	if cfg.OpenAI.MaxTranscript == 0 {
		cfg.OpenAI.MaxTranscript = 6000
	}
	if cfg.Media.FFmpegPath == "" {
		cfg.Media.FFmpegPath = "ffmpeg"
	}
	if cfg.Media.PaddingSec == 0 {
		cfg.Media.PaddingSec = 2
	}
	if cfg.Media.DefaultClipSec == 0 {
		cfg.Media.DefaultClipSec = 5
	}
	if cfg.Jira.URL != "" {
		cfg.Jira.URL = strings.TrimRight(cfg.Jira.URL, "/")
	}
	if cfg.Jira.IssueType == "" {
		cfg.Jira.IssueType = "Bug"
	}
	if cfg.Attachments.MaxRetries == 0 {
		cfg.Attachments.MaxRetries = 3
	}
	if cfg.Attachments.MaxBytes == 0 {
		cfg.Attachments.MaxBytes = 10 << 20
	}
}

func isNotExist(err error) bool {
	var nf viper.ConfigFileNotFoundError
	return errors.As(err, &nf) || errors.Is(err, fs.ErrNotExist)
}
