package cliout

// Display reports command progress and failures through this package.
type Display struct{}

// Info prints msg verbatim as an informational line.
func (Display) Info(msg string) {
	Info("%s", msg)
}

// Success prints msg verbatim as a success line.
func (Display) Success(msg string) {
	Success("%s", msg)
}

// Error prints msg verbatim as an error line.
func (Display) Error(msg string) {
	Error("%s", msg)
}
