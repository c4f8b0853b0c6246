package logging

// Canonical attribute keys. Using these constants keeps log output grep-able
// across packages.
const (
	FieldComponent = "component"
	FieldJobID     = "job_id"
	FieldCategory  = "category"
	FieldWorker    = "worker"
	FieldEventType = "event_type"
	FieldStatus    = "status"
	FieldProgress  = "progress"
	FieldDuration  = "duration"
	FieldPath      = "path"
	FieldURL       = "url"
	FieldError     = "error"
	FieldErrorHint = "error_hint"
	FieldExitCode  = "exit_code"
	FieldFeed      = "feed"
)
