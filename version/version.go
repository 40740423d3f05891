package version

var (
	// GitCommit is the current HEAD set using ldflags.
	GitCommit string

	// Version is the built softwares version.
	Version = IneryCoreSemVer
)

func init() {
	if GitCommit != "" {
		Version += "-" + GitCommit
	}
}

const (
	// IneryCoreSemVer is the current version of inery.
	// It's the Semantic Version of the software.
	IneryCoreSemVer = "0.3.0"
)

// Protocol is used for implementation agnostic versioning.
type Protocol uint64

// Uint64 returns the Protocol version as a uint64.
func (p Protocol) Uint64() uint64 {
	return uint64(p)
}

var (
	// BlockProtocol versions the block header encoding and the rules that
	// validate headers against the master schedule.
	BlockProtocol Protocol = 1

	// ScheduleProtocol versions the persisted master schedule format.
	ScheduleProtocol Protocol = 1
)
