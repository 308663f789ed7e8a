package daemon

// Event is something the control goroutine reacts to. The set of events is
// closed: SettingsChanged, ManualRun and MountsChanged.
type Event interface {
	event()
}

// SettingsChanged asks the loop to reload the settings file.
type SettingsChanged struct{}

// ManualRun asks the loop to run one job regardless of its schedule.
type ManualRun struct {
	Name string
}

// MountsChanged carries a full mount table snapshot.
type MountsChanged struct {
	Snapshot string
}

func (SettingsChanged) event() {}
func (ManualRun) event()       {}
func (MountsChanged) event()   {}
