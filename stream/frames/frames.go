// Package frames implements the 14 STREAM frame variants (plus the
// opaque Unknown catch-all) that make up a StreamPacket's frame list.
package frames

import (
	"fmt"

	"github.com/interledger4j/ilpstream/ilp"
	"github.com/interledger4j/ilpstream/oer"
)

// Type is a frame's wire type tag.
type Type uint8

const (
	TypeConnectionClose           Type = 0x01
	TypeConnectionNewAddress      Type = 0x02
	TypeConnectionMaxData         Type = 0x03
	TypeConnectionDataBlocked     Type = 0x04
	TypeConnectionMaxStreamID     Type = 0x05
	TypeConnectionStreamIDBlocked Type = 0x06
	TypeConnectionAssetDetails    Type = 0x07
	TypeStreamClose               Type = 0x10
	TypeStreamMoney                Type = 0x11
	TypeStreamMaxMoney             Type = 0x12
	TypeStreamMoneyBlocked         Type = 0x13
	TypeStreamData                  Type = 0x14
	TypeStreamMaxData               Type = 0x15
	TypeStreamDataBlocked           Type = 0x16
)

// ErrorCode is the STREAM-level (as opposed to ILP-level) error code
// carried by ConnectionClose and StreamClose frames.
type ErrorCode uint8

const (
	ErrNoError           ErrorCode = 0x01
	ErrInternalError     ErrorCode = 0x02
	ErrEndpointBusy      ErrorCode = 0x03
	ErrFlowControlError  ErrorCode = 0x04
	ErrStreamIDError     ErrorCode = 0x05
	ErrStreamStateError  ErrorCode = 0x06
	ErrFrameFormatError  ErrorCode = 0x07
	ErrProtocolViolation ErrorCode = 0x08
	ErrApplicationError  ErrorCode = 0x09
	ErrUnknown           ErrorCode = 0xff
)

func errorCodeFromByte(b byte) ErrorCode {
	switch b {
	case 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09:
		return ErrorCode(b)
	default:
		return ErrUnknown
	}
}

// Frame is the tagged-sum interface implemented by every frame variant
// (plus Unknown). Callers type-switch on the concrete type to handle a
// specific kind.
type Frame interface {
	frameType() Type
	putContents(buf []byte) []byte
}

// WriteTo appends f's wire encoding (type tag + length-prefixed
// contents) to buf, returning the extended slice. Unknown is never
// emitted by this encoder — callers must not construct one for sending.
func WriteTo(buf []byte, f Frame) []byte {
	if _, ok := f.(Unknown); ok {
		return buf
	}
	buf = append(buf, byte(f.frameType()))
	var contents []byte
	contents = f.putContents(contents)
	return oer.WriteVarOctetString(buf, contents)
}

// Unknown is the preserved-as-ignored catch-all for any frame type tag
// this implementation doesn't recognize. It MUST NOT be emitted and is
// skipped during decode without failing the packet.
type Unknown struct {
	Tag      byte
	Contents []byte
}

func (Unknown) frameType() Type                    { return 0 }
func (u Unknown) putContents(buf []byte) []byte     { return append(buf, u.Contents...) }

// ConnectionClose signals the frame after which the connection must be closed.
type ConnectionClose struct {
	Code    ErrorCode
	Message string
}

func (ConnectionClose) frameType() Type { return TypeConnectionClose }
func (f ConnectionClose) putContents(buf []byte) []byte {
	buf = append(buf, byte(f.Code))
	return oer.WriteVarOctetString(buf, []byte(f.Message))
}

func readConnectionClose(contents []byte) (ConnectionClose, error) {
	if len(contents) < 1 {
		return ConnectionClose{}, fmt.Errorf("frames: ConnectionClose: %w", oer.ErrBufferTooShort)
	}
	code := errorCodeFromByte(contents[0])
	message, _, err := oer.ReadVarOctetString(contents[1:])
	if err != nil {
		return ConnectionClose{}, fmt.Errorf("frames: ConnectionClose: %w", err)
	}
	return ConnectionClose{Code: code, Message: string(message)}, nil
}

// ConnectionNewAddress carries the sender's ILP address for the connection.
type ConnectionNewAddress struct {
	SourceAccount ilp.Address
}

func (ConnectionNewAddress) frameType() Type { return TypeConnectionNewAddress }
func (f ConnectionNewAddress) putContents(buf []byte) []byte {
	return oer.WriteVarOctetString(buf, f.SourceAccount.Bytes())
}

func readConnectionNewAddress(contents []byte) (ConnectionNewAddress, error) {
	raw, _, err := oer.ReadVarOctetString(contents)
	if err != nil {
		return ConnectionNewAddress{}, fmt.Errorf("frames: ConnectionNewAddress: %w", err)
	}
	addr, err := ilp.NewAddress(string(raw))
	if err != nil {
		return ConnectionNewAddress{}, fmt.Errorf("frames: ConnectionNewAddress: %w", err)
	}
	return ConnectionNewAddress{SourceAccount: addr}, nil
}

// ConnectionAssetDetails carries the sending endpoint's asset code and
// scale. MUST NOT vary across a connection's lifetime.
type ConnectionAssetDetails struct {
	SourceAssetCode  string
	SourceAssetScale uint8
}

func (ConnectionAssetDetails) frameType() Type { return TypeConnectionAssetDetails }
func (f ConnectionAssetDetails) putContents(buf []byte) []byte {
	buf = oer.WriteVarOctetString(buf, []byte(f.SourceAssetCode))
	return append(buf, f.SourceAssetScale)
}

func readConnectionAssetDetails(contents []byte) (ConnectionAssetDetails, error) {
	code, n, err := oer.ReadVarOctetString(contents)
	if err != nil {
		return ConnectionAssetDetails{}, fmt.Errorf("frames: ConnectionAssetDetails: %w", err)
	}
	if len(contents) < n+1 {
		return ConnectionAssetDetails{}, fmt.Errorf("frames: ConnectionAssetDetails: %w", oer.ErrBufferTooShort)
	}
	return ConnectionAssetDetails{SourceAssetCode: string(code), SourceAssetScale: contents[n]}, nil
}

// ConnectionMaxData caps the total bytes the endpoint will accept on the connection.
type ConnectionMaxData struct {
	MaxOffset uint64
}

func (ConnectionMaxData) frameType() Type { return TypeConnectionMaxData }
func (f ConnectionMaxData) putContents(buf []byte) []byte {
	return oer.WriteVarUint(buf, f.MaxOffset)
}

func readConnectionMaxData(contents []byte) (ConnectionMaxData, error) {
	v, _, err := oer.ReadVarUint(contents)
	if err != nil {
		return ConnectionMaxData{}, fmt.Errorf("frames: ConnectionMaxData: %w", err)
	}
	return ConnectionMaxData{MaxOffset: v}, nil
}

// ConnectionDataBlocked indicates the endpoint wants to send more data
// than the peer's ConnectionMaxData currently allows.
type ConnectionDataBlocked struct {
	MaxOffset uint64
}

func (ConnectionDataBlocked) frameType() Type { return TypeConnectionDataBlocked }
func (f ConnectionDataBlocked) putContents(buf []byte) []byte {
	return oer.WriteVarUint(buf, f.MaxOffset)
}

func readConnectionDataBlocked(contents []byte) (ConnectionDataBlocked, error) {
	v, _, err := oer.ReadVarUint(contents)
	if err != nil {
		return ConnectionDataBlocked{}, fmt.Errorf("frames: ConnectionDataBlocked: %w", err)
	}
	return ConnectionDataBlocked{MaxOffset: v}, nil
}

// ConnectionMaxStreamID caps the highest stream ID the endpoint will accept.
type ConnectionMaxStreamID struct {
	MaxStreamID uint64
}

func (ConnectionMaxStreamID) frameType() Type { return TypeConnectionMaxStreamID }
func (f ConnectionMaxStreamID) putContents(buf []byte) []byte {
	return oer.WriteVarUint(buf, f.MaxStreamID)
}

func readConnectionMaxStreamID(contents []byte) (ConnectionMaxStreamID, error) {
	v, _, err := oer.ReadVarUint(contents)
	if err != nil {
		return ConnectionMaxStreamID{}, fmt.Errorf("frames: ConnectionMaxStreamID: %w", err)
	}
	return ConnectionMaxStreamID{MaxStreamID: v}, nil
}

// ConnectionStreamIDBlocked indicates the endpoint wants to open a
// higher-numbered stream than the peer's ConnectionMaxStreamID allows.
type ConnectionStreamIDBlocked struct {
	MaxStreamID uint64
}

func (ConnectionStreamIDBlocked) frameType() Type { return TypeConnectionStreamIDBlocked }
func (f ConnectionStreamIDBlocked) putContents(buf []byte) []byte {
	return oer.WriteVarUint(buf, f.MaxStreamID)
}

func readConnectionStreamIDBlocked(contents []byte) (ConnectionStreamIDBlocked, error) {
	v, _, err := oer.ReadVarUint(contents)
	if err != nil {
		return ConnectionStreamIDBlocked{}, fmt.Errorf("frames: ConnectionStreamIDBlocked: %w", err)
	}
	return ConnectionStreamIDBlocked{MaxStreamID: v}, nil
}

// StreamClose signals the frame after which the given stream must be closed.
type StreamClose struct {
	StreamID uint64
	Code     ErrorCode
	Message  string
}

func (StreamClose) frameType() Type { return TypeStreamClose }
func (f StreamClose) putContents(buf []byte) []byte {
	buf = oer.WriteVarUint(buf, f.StreamID)
	buf = append(buf, byte(f.Code))
	return oer.WriteVarOctetString(buf, []byte(f.Message))
}

func readStreamClose(contents []byte) (StreamClose, error) {
	streamID, n, err := oer.ReadVarUint(contents)
	if err != nil {
		return StreamClose{}, fmt.Errorf("frames: StreamClose: %w", err)
	}
	if len(contents) < n+1 {
		return StreamClose{}, fmt.Errorf("frames: StreamClose: %w", oer.ErrBufferTooShort)
	}
	code := errorCodeFromByte(contents[n])
	message, _, err := oer.ReadVarOctetString(contents[n+1:])
	if err != nil {
		return StreamClose{}, fmt.Errorf("frames: StreamClose: %w", err)
	}
	return StreamClose{StreamID: streamID, Code: code, Message: string(message)}, nil
}

// StreamMoney specifies the proportional share of the Prepare amount
// destined for a given stream.
type StreamMoney struct {
	StreamID uint64
	Shares   uint64
}

func (StreamMoney) frameType() Type { return TypeStreamMoney }
func (f StreamMoney) putContents(buf []byte) []byte {
	buf = oer.WriteVarUint(buf, f.StreamID)
	return oer.WriteVarUint(buf, f.Shares)
}

func readStreamMoney(contents []byte) (StreamMoney, error) {
	streamID, n, err := oer.ReadVarUint(contents)
	if err != nil {
		return StreamMoney{}, fmt.Errorf("frames: StreamMoney: %w", err)
	}
	shares, _, err := oer.ReadVarUint(contents[n:])
	if err != nil {
		return StreamMoney{}, fmt.Errorf("frames: StreamMoney: %w", err)
	}
	return StreamMoney{StreamID: streamID, Shares: shares}, nil
}

// StreamMaxMoney advertises how much more the endpoint is willing to receive on a stream.
type StreamMaxMoney struct {
	StreamID      uint64
	ReceiveMax    uint64
	TotalReceived uint64
}

func (StreamMaxMoney) frameType() Type { return TypeStreamMaxMoney }
func (f StreamMaxMoney) putContents(buf []byte) []byte {
	buf = oer.WriteVarUint(buf, f.StreamID)
	buf = oer.WriteVarUint(buf, f.ReceiveMax)
	return oer.WriteVarUint(buf, f.TotalReceived)
}

func readStreamMaxMoney(contents []byte) (StreamMaxMoney, error) {
	streamID, n, err := oer.ReadVarUint(contents)
	if err != nil {
		return StreamMaxMoney{}, fmt.Errorf("frames: StreamMaxMoney: %w", err)
	}
	receiveMax, n2, err := oer.SaturatingReadVarUint(contents[n:])
	if err != nil {
		return StreamMaxMoney{}, fmt.Errorf("frames: StreamMaxMoney: %w", err)
	}
	totalReceived, _, err := oer.ReadVarUint(contents[n+n2:])
	if err != nil {
		return StreamMaxMoney{}, fmt.Errorf("frames: StreamMaxMoney: %w", err)
	}
	return StreamMaxMoney{StreamID: streamID, ReceiveMax: receiveMax, TotalReceived: totalReceived}, nil
}

// StreamMoneyBlocked indicates the endpoint wants to send more money
// than the peer's StreamMaxMoney currently allows.
type StreamMoneyBlocked struct {
	StreamID  uint64
	SendMax   uint64
	TotalSent uint64
}

func (StreamMoneyBlocked) frameType() Type { return TypeStreamMoneyBlocked }
func (f StreamMoneyBlocked) putContents(buf []byte) []byte {
	buf = oer.WriteVarUint(buf, f.StreamID)
	buf = oer.WriteVarUint(buf, f.SendMax)
	return oer.WriteVarUint(buf, f.TotalSent)
}

func readStreamMoneyBlocked(contents []byte) (StreamMoneyBlocked, error) {
	streamID, n, err := oer.ReadVarUint(contents)
	if err != nil {
		return StreamMoneyBlocked{}, fmt.Errorf("frames: StreamMoneyBlocked: %w", err)
	}
	sendMax, n2, err := oer.SaturatingReadVarUint(contents[n:])
	if err != nil {
		return StreamMoneyBlocked{}, fmt.Errorf("frames: StreamMoneyBlocked: %w", err)
	}
	totalSent, _, err := oer.ReadVarUint(contents[n+n2:])
	if err != nil {
		return StreamMoneyBlocked{}, fmt.Errorf("frames: StreamMoneyBlocked: %w", err)
	}
	return StreamMoneyBlocked{StreamID: streamID, SendMax: sendMax, TotalSent: totalSent}, nil
}

// StreamData carries a fragment of application data for a stream.
// Retransmitted data MUST use identical (Offset, Data); ranges MUST NOT overlap.
type StreamData struct {
	StreamID uint64
	Offset   uint64
	Data     []byte
}

func (StreamData) frameType() Type { return TypeStreamData }
func (f StreamData) putContents(buf []byte) []byte {
	buf = oer.WriteVarUint(buf, f.StreamID)
	buf = oer.WriteVarUint(buf, f.Offset)
	return oer.WriteVarOctetString(buf, f.Data)
}

func readStreamData(contents []byte) (StreamData, error) {
	streamID, n, err := oer.ReadVarUint(contents)
	if err != nil {
		return StreamData{}, fmt.Errorf("frames: StreamData: %w", err)
	}
	offset, n2, err := oer.ReadVarUint(contents[n:])
	if err != nil {
		return StreamData{}, fmt.Errorf("frames: StreamData: %w", err)
	}
	data, _, err := oer.ReadVarOctetString(contents[n+n2:])
	if err != nil {
		return StreamData{}, fmt.Errorf("frames: StreamData: %w", err)
	}
	return StreamData{StreamID: streamID, Offset: offset, Data: data}, nil
}

// StreamMaxData advertises how much more data the endpoint will accept on a stream.
type StreamMaxData struct {
	StreamID  uint64
	MaxOffset uint64
}

func (StreamMaxData) frameType() Type { return TypeStreamMaxData }
func (f StreamMaxData) putContents(buf []byte) []byte {
	buf = oer.WriteVarUint(buf, f.StreamID)
	return oer.WriteVarUint(buf, f.MaxOffset)
}

func readStreamMaxData(contents []byte) (StreamMaxData, error) {
	streamID, n, err := oer.ReadVarUint(contents)
	if err != nil {
		return StreamMaxData{}, fmt.Errorf("frames: StreamMaxData: %w", err)
	}
	maxOffset, _, err := oer.ReadVarUint(contents[n:])
	if err != nil {
		return StreamMaxData{}, fmt.Errorf("frames: StreamMaxData: %w", err)
	}
	return StreamMaxData{StreamID: streamID, MaxOffset: maxOffset}, nil
}

// StreamDataBlocked indicates the endpoint wants to send more data than
// the peer's StreamMaxData currently allows.
type StreamDataBlocked struct {
	StreamID  uint64
	MaxOffset uint64
}

func (StreamDataBlocked) frameType() Type { return TypeStreamDataBlocked }
func (f StreamDataBlocked) putContents(buf []byte) []byte {
	buf = oer.WriteVarUint(buf, f.StreamID)
	return oer.WriteVarUint(buf, f.MaxOffset)
}

func readStreamDataBlocked(contents []byte) (StreamDataBlocked, error) {
	streamID, n, err := oer.ReadVarUint(contents)
	if err != nil {
		return StreamDataBlocked{}, fmt.Errorf("frames: StreamDataBlocked: %w", err)
	}
	maxOffset, _, err := oer.ReadVarUint(contents[n:])
	if err != nil {
		return StreamDataBlocked{}, fmt.Errorf("frames: StreamDataBlocked: %w", err)
	}
	return StreamDataBlocked{StreamID: streamID, MaxOffset: maxOffset}, nil
}

// ReadFrom decodes a single frame (type tag + length-prefixed contents)
// from the head of buf, returning the frame and the number of bytes
// consumed. Unrecognized type tags decode to Unknown rather than
// failing, per the STREAM RFC's forward-compatibility rule.
func ReadFrom(buf []byte) (Frame, int, error) {
	if len(buf) < 1 {
		return nil, 0, fmt.Errorf("frames: %w", oer.ErrBufferTooShort)
	}
	tag := buf[0]
	contents, n, err := oer.ReadVarOctetString(buf[1:])
	if err != nil {
		return nil, 0, fmt.Errorf("frames: reading contents for tag 0x%02x: %w", tag, err)
	}
	total := 1 + n

	var (
		frame Frame
	)
	switch Type(tag) {
	case TypeConnectionClose:
		frame, err = readConnectionClose(contents)
	case TypeConnectionNewAddress:
		frame, err = readConnectionNewAddress(contents)
	case TypeConnectionMaxData:
		frame, err = readConnectionMaxData(contents)
	case TypeConnectionDataBlocked:
		frame, err = readConnectionDataBlocked(contents)
	case TypeConnectionMaxStreamID:
		frame, err = readConnectionMaxStreamID(contents)
	case TypeConnectionStreamIDBlocked:
		frame, err = readConnectionStreamIDBlocked(contents)
	case TypeConnectionAssetDetails:
		frame, err = readConnectionAssetDetails(contents)
	case TypeStreamClose:
		frame, err = readStreamClose(contents)
	case TypeStreamMoney:
		frame, err = readStreamMoney(contents)
	case TypeStreamMaxMoney:
		frame, err = readStreamMaxMoney(contents)
	case TypeStreamMoneyBlocked:
		frame, err = readStreamMoneyBlocked(contents)
	case TypeStreamData:
		frame, err = readStreamData(contents)
	case TypeStreamMaxData:
		frame, err = readStreamMaxData(contents)
	case TypeStreamDataBlocked:
		frame, err = readStreamDataBlocked(contents)
	default:
		return Unknown{Tag: tag, Contents: append([]byte(nil), contents...)}, total, nil
	}
	if err != nil {
		return nil, 0, err
	}
	return frame, total, nil
}
