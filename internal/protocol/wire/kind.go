package wire

import "fmt"

// Kind is the 4-byte tag that leads every wire message.
type Kind uint32

// Kind tag values shared by every peer.
const (
	KindUpdate     Kind = 0
	KindRegister   Kind = 1
	KindUnregister Kind = 2
	KindWarning    Kind = 3
)

const (
	// KindTagLen is the size of the leading kind tag.
	KindTagLen = 4

	idLen   = 4
	typeLen = 4
)

func (k Kind) String() string {
	switch k {
	case KindUpdate:
		return "update"
	case KindRegister:
		return "register"
	case KindUnregister:
		return "unregister"
	case KindWarning:
		return "warning"
	default:
		return fmt.Sprintf("kind(%d)", uint32(k))
	}
}

// Valid reports whether k is one of the four known kinds.
func (k Kind) Valid() bool {
	return k <= KindWarning
}

// HeaderSize returns the number of header bytes a message of kind k carries
// ahead of its payload.
func HeaderSize(k Kind) (int, error) {
	switch k {
	case KindUpdate, KindUnregister:
		return idLen, nil
	case KindRegister:
		return idLen + typeLen, nil
	case KindWarning:
		return 0, nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrUnknownKind, uint32(k))
	}
}
