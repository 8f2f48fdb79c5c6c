package workflow

// Buttons is the enabled state of the two connect dialog actions.
type Buttons struct {
	Request bool
	Select  bool
}

var stepButtons = [...]Buttons{
	{Request: false, Select: false},
	{Request: true, Select: false},
	{Request: true, Select: true},
}

// ClampStep clamps step into the valid range 0-2.
func ClampStep(step int) int {
	if step < 0 {
		return 0
	}
	if step > len(stepButtons)-1 {
		return len(stepButtons) - 1
	}
	return step
}

// StepButtons returns the buttons enabled at step. Out of range steps are clamped.
func StepButtons(step int) Buttons {
	return stepButtons[ClampStep(step)]
}

// View is the connect dialog bound to the workflow for as long as it is open.
type View interface {
	// SetPlatformAvailable hides the availability notice or the connect steps.
	SetPlatformAvailable(available bool)
	SetButtons(b Buttons)
	// SetWorkingFolder shows the bound folder and offers to use it.
	SetWorkingFolder(name string)
	// Close dismisses the dialog. The workflow drops the view afterwards.
	Close()
}

// Platform reports whether serial access exists on this host.
type Platform interface {
	Available() error
}

// PlatformFunc adapts a function to Platform.
type PlatformFunc func() error

// Available implements Platform.
func (f PlatformFunc) Available() error { return f() }

// Storage binds host folders to a device identity. *hostfolder.Binder implements it.
type Storage interface {
	Attach(identity string)
	Detach()
	LoadRemembered() bool
	Select(path string) (bool, error)
	WorkingFolderName() string
	ListRoot() ([]string, error)
}
