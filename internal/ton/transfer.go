package ton

import (
	"strings"

	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/tvm/cell"
)

// IncomingTransfer is a plain inbound TON transfer to the hot wallet.
type IncomingTransfer struct {
	LT      uint64
	From    string
	Amount  int64 // nanoTON
	Comment string
}

// ParseIncoming returns the inbound value transfer carried by tx. Bounced
// messages, external messages and zero-value transfers yield false.
func ParseIncoming(tx *tlb.Transaction) (*IncomingTransfer, bool) {
	if tx == nil || tx.IO.In == nil {
		return nil, false
	}

	inMsg, ok := tx.IO.In.Msg.(*tlb.InternalMessage)
	if !ok || inMsg == nil || inMsg.Bounced {
		return nil, false
	}

	nano := inMsg.Amount.Nano()
	if nano.Sign() <= 0 {
		return nil, false
	}
	amount, err := nanoToInt64(nano)
	if err != nil {
		return nil, false
	}

	from := ""
	if inMsg.SrcAddr != nil {
		from = inMsg.SrcAddr.String()
	}
	return &IncomingTransfer{
		LT:      tx.LT,
		From:    from,
		Amount:  amount,
		Comment: ExtractComment(inMsg.Body),
	}, true
}

// ExtractComment parses a text comment: opcode 0x00000000 followed by a
// snake-encoded UTF-8 string.
func ExtractComment(body *cell.Cell) string {
	if body == nil {
		return ""
	}

	slice := body.BeginParse()
	if slice.BitsLeft() < 32 {
		return ""
	}

	op, err := slice.LoadUInt(32)
	if err != nil || op != 0 {
		return ""
	}

	text, err := slice.LoadStringSnake()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}
