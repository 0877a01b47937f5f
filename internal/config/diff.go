package config

import (
	"maps"
	"slices"
)

// ConfigDiff describes what changed between two configs.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// EditorChanged is set when any editor setting differs. Editor settings
	// are applied to open sessions without a restart.
	EditorChanged bool

	// RestartRequired is set when server or storage settings changed; those
	// only take effect after a restart.
	RestartRequired bool
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Server.ListenAddr != new.Server.ListenAddr ||
		old.Server.LogFormat != new.Server.LogFormat ||
		old.Server.MetricsEnabled() != new.Server.MetricsEnabled() ||
		old.Storage != new.Storage {
		d.RestartRequired = true
	}

	d.EditorChanged = !editorEqual(old.Editor, new.Editor)
	return d
}

func editorEqual(a, b EditorConfig) bool {
	return a.CapitalizeInterval == b.CapitalizeInterval &&
		a.AutosaveInterval == b.AutosaveInterval &&
		a.ValidationDebounce == b.ValidationDebounce &&
		a.SnapshotDebounce == b.SnapshotDebounce &&
		a.ContinuousValidation == b.ContinuousValidation &&
		a.ViewportBuffer == b.ViewportBuffer &&
		a.SnippetCount == b.SnippetCount &&
		a.MaxVersions == b.MaxVersions &&
		a.SuggestFromTranscript() == b.SuggestFromTranscript() &&
		a.SuggestionLimit == b.SuggestionLimit &&
		slices.Equal(a.Fillers, b.Fillers) &&
		slices.Equal(a.ActiveListeningCues, b.ActiveListeningCues) &&
		slices.Equal(a.Phrases, b.Phrases) &&
		maps.Equal(a.Shortcuts, b.Shortcuts)
}
