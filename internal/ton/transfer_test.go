package ton

import (
	"testing"

	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/tvm/cell"
)

func commentCell(t *testing.T, text string) *cell.Cell {
	t.Helper()
	b := cell.BeginCell().MustStoreUInt(0, 32)
	if err := b.StoreStringSnake(text); err != nil {
		t.Fatal(err)
	}
	return b.EndCell()
}

func inboundTx(lt uint64, msg *tlb.InternalMessage) *tlb.Transaction {
	tx := &tlb.Transaction{LT: lt}
	tx.IO.In = &tlb.Message{MsgType: tlb.MsgTypeInternal, Msg: msg}
	return tx
}

func TestExtractComment(t *testing.T) {
	if got := ExtractComment(commentCell(t, "  deposit:abc \n")); got != "deposit:abc" {
		t.Errorf("comment = %q", got)
	}

	long := ""
	for i := 0; i < 40; i++ {
		long += "0123456789"
	}
	if got := ExtractComment(commentCell(t, long)); got != long {
		t.Errorf("snake comment truncated to %d bytes", len(got))
	}

	if got := ExtractComment(cell.BeginCell().MustStoreUInt(0x0f8a7ea5, 32).EndCell()); got != "" {
		t.Errorf("non-text op gave %q", got)
	}
	if got := ExtractComment(nil); got != "" {
		t.Errorf("nil body gave %q", got)
	}
}

func TestParseIncoming(t *testing.T) {
	src := address.MustParseAddr("EQCD39VS5jcptHL8vMjEXrzGaRcCVYto7HUn4bpAOg8xqB2N")

	tr, ok := ParseIncoming(inboundTx(42, &tlb.InternalMessage{
		SrcAddr: src,
		Amount:  tlb.MustFromTON("1.25"),
		Body:    commentCell(t, "deposit:x"),
	}))
	if !ok {
		t.Fatal("transfer not recognised")
	}
	if tr.LT != 42 || tr.Amount != 1_250_000_000 || tr.Comment != "deposit:x" || tr.From != src.String() {
		t.Errorf("transfer = %+v", tr)
	}

	if _, ok := ParseIncoming(inboundTx(43, &tlb.InternalMessage{
		SrcAddr: src, Amount: tlb.MustFromTON("1"), Bounced: true,
	})); ok {
		t.Error("bounced message accepted")
	}
	if _, ok := ParseIncoming(inboundTx(44, &tlb.InternalMessage{
		SrcAddr: src, Amount: tlb.MustFromTON("0"),
	})); ok {
		t.Error("zero-value message accepted")
	}
	if _, ok := ParseIncoming(&tlb.Transaction{LT: 45}); ok {
		t.Error("transaction without inbound message accepted")
	}
}
