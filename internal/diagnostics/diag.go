package diagnostics

type Severity string

const (
	Info Severity = "info"
	Warn Severity = "warning"
	Err  Severity = "error"
)

// Codes published by the gallery.
const (
	LoadFailed         = "LOAD.FAILED"
	SurfaceLost        = "SURFACE.LOST"
	SurfaceRestored    = "SURFACE.RESTORED"
	SurfaceUnsupported = "SURFACE.UNSUPPORTED"
	NavTimeout         = "NAV.TIMEOUT"
	ManifestInvalid    = "MANIFEST.INVALID"
)

type Diagnostic struct {
	Severity       Severity       `json:"severity"`
	Code           string         `json:"code"`
	Summary        string         `json:"summary"`
	Detail         string         `json:"detail,omitempty"`
	LikelyCauses   []string       `json:"likely_causes,omitempty"`
	SuggestedFixes []string       `json:"suggested_fixes,omitempty"`
	Evidence       map[string]any `json:"evidence,omitempty"`
}

// New is a shorthand for a diagnostic without causes or fixes.
func New(sev Severity, code, summary string, evidence map[string]any) Diagnostic {
	return Diagnostic{Severity: sev, Code: code, Summary: summary, Evidence: evidence}
}

// Fallback is the notice shown instead of the gallery when nothing can be
// drawn.
const Fallback = "This gallery needs GPU rendering, which is not available on this device."

// NoSlides is shown when every slide failed to load.
const NoSlides = "None of the slides in this gallery could be loaded."
