package config

import "slices"

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked; provider changes
// require a restart and are deliberately absent.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// SpeechChanged is true when any synthesis output parameter changed.
	// Applies to the next utterance; live playback is never retuned.
	SpeechChanged bool

	// ActivityChanged is true when detector tuning changed. Applies to the
	// next detection run.
	ActivityChanged bool

	// VocabularyChanged is true when the correction vocabulary changed.
	// Applies to the next final result.
	VocabularyChanged bool
}

// Any reports whether the diff contains at least one change.
func (d ConfigDiff) Any() bool {
	return d.LogLevelChanged || d.SpeechChanged || d.ActivityChanged || d.VocabularyChanged
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Engine.Language != new.Engine.Language || old.Engine.Speech != new.Engine.Speech {
		d.SpeechChanged = true
	}

	if old.Engine.Activity != new.Engine.Activity {
		d.ActivityChanged = true
	}

	if !slices.Equal(old.Engine.Vocabulary, new.Engine.Vocabulary) {
		d.VocabularyChanged = true
	}

	return d
}
