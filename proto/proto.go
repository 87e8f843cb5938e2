package proto

const (
	ReqIdKey = "req-id"

	ClassZlog      = "zlog"
	ClassZlogBench = "zlog_bench"
	ClassPhyDesign = "phydesign"
)

// Log entry flags of the omap embedded and hybrid index layouts.
const (
	EntryFlagInvalidated uint32 = 1
	EntryFlagTrimmed     uint32 = 2
)

// Message is a request or reply record that travels as an object class
// method input or output buffer.
type Message interface {
	Marshal() ([]byte, error)
	Unmarshal(b []byte) error
}
