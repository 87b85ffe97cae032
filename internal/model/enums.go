package model

// Job status
type JobStatus string

const (
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Provider model versions
type ModelChoice string

const (
	ModelV3_5 ModelChoice = "V3_5"
	ModelV4   ModelChoice = "V4"
	ModelV4_5 ModelChoice = "V4_5"
)

var ValidModelChoices = []ModelChoice{ModelV3_5, ModelV4, ModelV4_5}

// IsValid reports whether m is a model the provider accepts.
func (m ModelChoice) IsValid() bool {
	for _, v := range ValidModelChoices {
		if m == v {
			return true
		}
	}
	return false
}

// Vocal modes
type VocalMode string

const (
	VocalModeVocal        VocalMode = "vocal"
	VocalModeInstrumental VocalMode = "instrumental"
)

// Instrumental reports whether the song should be rendered without vocals.
func (v VocalMode) Instrumental() bool {
	return v == VocalModeInstrumental
}
