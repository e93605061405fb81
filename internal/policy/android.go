package policy

// AndroidShellPolicy exempts AOSP and Google system UI and launchers.
type AndroidShellPolicy struct{}

// NewAndroidShellPolicy creates the Android system UI policy.
func NewAndroidShellPolicy() *AndroidShellPolicy {
	return &AndroidShellPolicy{}
}

func (p *AndroidShellPolicy) ID() string {
	return "android-shell"
}

func (p *AndroidShellPolicy) Name() string {
	return "Android system UI"
}

// Rules returns the system UI and launcher patterns.
// Any identifier containing "launcher" is treated as a launcher; locking
// one would leave the user without a way to navigate.
func (p *AndroidShellPolicy) Rules() []Rule {
	return []Rule{
		Contains("com.android.systemui"),
		Contains("com.android.launcher"),
		Contains("com.google.android.launcher"),
		Contains("launcher"),

		// Platform packages (settings, package installer, dialer...)
		Prefix("com.android."),
		Prefix("com.google.android."),

		// The framework itself
		Exact("android"),
	}
}

// Ensure AndroidShellPolicy implements ShellPolicy.
var _ ShellPolicy = (*AndroidShellPolicy)(nil)
