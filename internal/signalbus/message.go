// Package signalbus implements the local-domain message sockets connecting
// the data-center, backend, and tool processes. Each socket carries one
// message type, framed length-prefixed and encrypted with the shared
// cryptoenv envelope.
package signalbus

// Default socket paths and the tool's well-known development password.
const (
	DefaultDataCenterSocket = "/tmp/dmcap_datacenter.sock"
	DefaultBackendSocket    = "/tmp/dmcap_backend.sock"
	DefaultToolSocket       = "/tmp/dmcap_tool.sock"

	// DefaultToolPassword is a documented development default, overridable
	// via the DMCAP_TOOL_PASSWORD environment variable. The tool socket
	// authenticates the CLI operator, not an external party, so a fixed
	// default is acceptable.
	DefaultToolPassword = "dmcap-tool"
)

// DataCenterMessage is sent by the tool to the data-center socket to
// mutate its capture set.
type DataCenterMessage struct {
	Kind     DataCenterMessageKind `json:"kind"`
	UID      uint64                `json:"uid"`
	FromTool bool                  `json:"from_tool"`
}

type DataCenterMessageKind string

const (
	DataCenterAddLiver    DataCenterMessageKind = "add_liver"
	DataCenterDeleteLiver DataCenterMessageKind = "delete_liver"
)

// BackendMessage is sent by the tool to the backend socket to mutate its
// token roster.
type BackendMessage struct {
	Kind BackendMessageKind `json:"kind"`
	UID  uint64             `json:"uid"`
}

type BackendMessageKind string

const (
	BackendAddLiver    BackendMessageKind = "add_liver"
	BackendDeleteLiver BackendMessageKind = "delete_liver"
)

// ToolMessage is sent to the tool socket by the data-center and backend,
// reporting the outcome of a mutation the tool requested. Token is only
// meaningful for a BackendAddLiver report.
type ToolMessage struct {
	Kind        ToolMessageKind `json:"kind"`
	UID         uint64          `json:"uid"`
	Preexisting bool            `json:"preexisting"`
	Token       string          `json:"token,omitempty"`
}

type ToolMessageKind string

const (
	ToolDataCenterAddLiver    ToolMessageKind = "datacenter_add_liver"
	ToolDataCenterDeleteLiver ToolMessageKind = "datacenter_delete_liver"
	ToolBackendAddLiver       ToolMessageKind = "backend_add_liver"
	ToolBackendDeleteLiver    ToolMessageKind = "backend_delete_liver"
)
