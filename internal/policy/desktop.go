package policy

// DesktopShellPolicy exempts desktop compositors, shells and file managers
// reported by the active-window source.
type DesktopShellPolicy struct{}

// NewDesktopShellPolicy creates the desktop shell policy.
func NewDesktopShellPolicy() *DesktopShellPolicy {
	return &DesktopShellPolicy{}
}

func (p *DesktopShellPolicy) ID() string {
	return "desktop-shell"
}

func (p *DesktopShellPolicy) Name() string {
	return "Desktop shells"
}

// Rules returns process names of common desktop shells.
func (p *DesktopShellPolicy) Rules() []Rule {
	return []Rule{
		// Linux
		Exact("gnome-shell"),
		Exact("plasmashell"),
		Exact("Xorg"),
		Exact("Xwayland"),
		Exact("kwin_x11"),
		Exact("kwin_wayland"),

		// macOS
		Exact("Finder"),
		Exact("Dock"),
		Exact("loginwindow"),

		// Windows
		Exact("explorer.exe"),
	}
}

// Ensure DesktopShellPolicy implements ShellPolicy.
var _ ShellPolicy = (*DesktopShellPolicy)(nil)
