package domain

// Capability 模块权限点
// Registered with the host application; defaults mirror the module manifest.
type Capability string

const (
	// CapAccessModule gates every read/write endpoint of the module.
	CapAccessModule Capability = "hhlc_access_module"
	// CapEditSubmitted gates unlock and any write against a submitted record.
	CapEditSubmitted Capability = "hhlc_edit_submitted"
	// CapViewReports gates the reporting/export endpoints.
	CapViewReports Capability = "hhlc_view_reports"
)

// Actor 请求主体（由宿主应用解析身份后透传）
type Actor struct {
	UserID      string
	DisplayName string
	Role        string
}
