package shared

const (
	AppName     = "GramManager"
	AppID       = "org.gramlinux.GramManager"
	GRPCAddress = "127.0.0.1:9963"
	WebAddress  = "127.0.0.1:9964"

	// PrivilegeGroup members may write the lg-laptop attributes directly
	PrivilegeGroup = "lg-gram"
)
