// progress/progress.go

// Package progress shows a terminal spinner while a blocking step runs.
package progress

import (
	"os"
	"time"

	"github.com/briandowns/spinner"
)

// Output is where the spinner is drawn. The spinner stays silent when it
// is not a terminal.
var Output = os.Stderr

// Run shows begin with a spinner while fn runs, then end if fn succeeded.
// The spinner only draws; fn's result is returned unchanged.
func Run[T any](begin, end string, fn func() (T, error)) (T, error) {
	s := spinner.New(spinner.CharSets[9], 100*time.Millisecond, spinner.WithWriterFile(Output))
	s.Prefix = begin + " "
	s.Start()

	v, err := fn()
	if err == nil && end != "" {
		s.FinalMSG = end + "\n"
	}
	s.Stop()
	return v, err
}

// Do is Run for steps without a result.
func Do(begin, end string, fn func() error) error {
	_, err := Run(begin, end, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}
