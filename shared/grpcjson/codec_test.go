package grpcjson

import (
	"testing"

	"google.golang.org/grpc/encoding"

	"github.com/Tanmoy095/LogiSynapse-escrow/shared/contracts"
)

func TestCodecRegistered(t *testing.T) {
	c := encoding.GetCodec(Name)
	if c == nil {
		t.Fatal("json codec not registered")
	}
	in := contracts.UpdateStatusRequest{ID: ^uint64(0), Status: contracts.StatusDelayed, PenaltyAmount: 1 << 63}
	b, err := c.Marshal(&in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out contracts.UpdateStatusRequest
	if err := c.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out != in {
		t.Fatalf("uint64 values must survive exactly: got %+v, want %+v", out, in)
	}
}

func TestCodecRejectsGarbage(t *testing.T) {
	var out contracts.BalanceRequest
	if err := (codec{}).Unmarshal([]byte("{"), &out); err == nil {
		t.Fatal("expected error")
	}
}
