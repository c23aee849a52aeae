package protocol

const (
	// Handshaking (C→S)
	C2SHandshake = 0x00

	// Login (C→S)
	C2SLoginStart = 0x00

	// Login (S→C)
	S2CLoginSuccess   = 0x02
	S2CSetCompression = 0x03
)
