// Package hci holds the host-facing taxonomy of the virtual controller:
// status codes, common enumerations, and the ACL data packet exchanged with
// the host.
package hci

import "fmt"

// ErrorCode is an HCI status code [Vol 1, Part F, 1.3].
type ErrorCode uint8

const (
	Success                         ErrorCode = 0x00
	UnknownHciCommand               ErrorCode = 0x01
	UnknownConnection               ErrorCode = 0x02
	AuthenticationFailure           ErrorCode = 0x05
	PinOrKeyMissing                 ErrorCode = 0x06
	ConnectionAcceptTimeout         ErrorCode = 0x10
	CommandDisallowed               ErrorCode = 0x0C
	InvalidHciCommandParameters     ErrorCode = 0x12
	RemoteUserTerminatedConnection  ErrorCode = 0x13
	ConnectionTerminatedByLocalHost ErrorCode = 0x16
	UnsupportedRemoteFeature        ErrorCode = 0x1A
	InvalidLmpOrLlParameters        ErrorCode = 0x1E
	EncryptionModeNotAcceptable     ErrorCode = 0x25
	ControllerBusy                  ErrorCode = 0x3A
)

func (e ErrorCode) String() string {
	switch e {
	case Success:
		return "success"
	case UnknownHciCommand:
		return "unknown hci command"
	case UnknownConnection:
		return "unknown connection"
	case AuthenticationFailure:
		return "authentication failure"
	case PinOrKeyMissing:
		return "pin or key missing"
	case ConnectionAcceptTimeout:
		return "connection accept timeout"
	case CommandDisallowed:
		return "command disallowed"
	case InvalidHciCommandParameters:
		return "invalid hci command parameters"
	case RemoteUserTerminatedConnection:
		return "remote user terminated connection"
	case ConnectionTerminatedByLocalHost:
		return "connection terminated by local host"
	case UnsupportedRemoteFeature:
		return "unsupported remote feature"
	case InvalidLmpOrLlParameters:
		return "invalid lmp or ll parameters"
	case EncryptionModeNotAcceptable:
		return "encryption mode not acceptable"
	case ControllerBusy:
		return "controller busy"
	default:
		return fmt.Sprintf("error code 0x%02x", uint8(e))
	}
}
