package policy

// VendorLauncherPolicy exempts OEM home screens that do not follow
// the AOSP naming.
type VendorLauncherPolicy struct{}

// NewVendorLauncherPolicy creates the vendor launcher policy.
func NewVendorLauncherPolicy() *VendorLauncherPolicy {
	return &VendorLauncherPolicy{}
}

func (p *VendorLauncherPolicy) ID() string {
	return "vendor-launcher"
}

func (p *VendorLauncherPolicy) Name() string {
	return "Vendor launchers"
}

// Rules returns known OEM launcher packages.
// Launchers missing from this list are treated as lockable.
func (p *VendorLauncherPolicy) Rules() []Rule {
	return []Rule{
		Contains("com.miui.home"),
		Contains("com.huawei.android.launcher"),
		Contains("com.oneplus.launcher"),
	}
}

// Ensure VendorLauncherPolicy implements ShellPolicy.
var _ ShellPolicy = (*VendorLauncherPolicy)(nil)
