package supervisor

import "github.com/core-tools/hsu-bot/pkg/plugins"

type LaunchStatus string

const (
	StatusStarted           LaunchStatus = "started"
	StatusMissingEntryPoint LaunchStatus = "missing-entry-point"
	StatusImportFailed      LaunchStatus = "import-failed"
	StatusRuntimeFailed     LaunchStatus = "runtime-failed"
	StatusCompleted         LaunchStatus = "completed"
)

// LaunchOutcome is the diagnostic record of one plugin's launch attempt
type LaunchOutcome struct {
	Name     string
	Status   LaunchStatus
	Err      error
	RunID    string
	Attempts int
}

// Started reports whether the plugin's entry point was ever invoked
func (o LaunchOutcome) Started() bool {
	switch o.Status {
	case StatusStarted, StatusRuntimeFailed, StatusCompleted:
		return true
	default:
		return false
	}
}

func outcomeForUnresolved(unit plugins.Unit) LaunchOutcome {
	status := StatusImportFailed
	if unit.Status == plugins.UnitStatusMissingEntryPoint {
		status = StatusMissingEntryPoint
	}
	return LaunchOutcome{
		Name:   unit.Name,
		Status: status,
		Err:    unit.Err,
	}
}

// CountByStatus tallies outcomes, handy for the startup summary line
func CountByStatus(outcomes []LaunchOutcome) map[LaunchStatus]int {
	counts := make(map[LaunchStatus]int)
	for _, outcome := range outcomes {
		counts[outcome.Status]++
	}
	return counts
}
