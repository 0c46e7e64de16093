package protocol

import (
	"strings"
	"testing"

	"snakepit/game"
)

func TestJSONEnvelopeShape(t *testing.T) {
	b, err := Encode(MsgRoomCreated, RoomCreated{RoomID: "ABC234", BetAmount: 10})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got := string(b)
	if !strings.Contains(got, `"t":"roomCreated"`) || !strings.Contains(got, `"roomId":"ABC234"`) {
		t.Fatalf("unexpected wire form %s", got)
	}
}

func TestEncodeRejectsEmptyTypeAndNilPayload(t *testing.T) {
	if _, err := Encode("", Error{}); err == nil {
		t.Fatalf("expected error for empty type")
	}
	if _, err := Encode(MsgError, nil); err == nil {
		t.Fatalf("expected error for nil payload")
	}
}

func TestDecodeEnvelopeRejectsEmpty(t *testing.T) {
	_, err := DecodeEnvelope(nil)
	if err == nil {
		t.Fatalf("expected error for empty input")
	}
	_, err2 := DecodeEnvelope([]byte(`{"p":{}}`))
	if err2 == nil {
		t.Fatalf("expected error for missing type")
	}
	for _, e := range []error{err, err2} {
		if msg := e.Error(); msg != strings.ToLower(msg[:1])+msg[1:] {
			t.Fatalf("error %q should start lowercase", msg)
		}
	}
}

func TestMsgPackCarriesState(t *testing.T) {
	start := int64(1000)
	in := GameState{
		RoomID:     "R00M22",
		Players:    []PlayerSnapshot{{ID: "a", Snake: []game.Position{{X: 1, Y: 2}}, Score: 3}},
		Food:       game.Position{X: 4, Y: 5},
		GridSize:   30,
		GameStatus: "inProgress",
		StartTime:  &start,
		PotAmount:  20,
	}
	b, err := EncodeWith(MsgPack, MsgGameState, in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	env, err := DecodeEnvelopeWith(MsgPack, b)
	if err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.T != MsgGameState {
		t.Fatalf("type = %q", env.T)
	}
	out, err := DecodePayloadWith[GameState](MsgPack, env)
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if out.RoomID != in.RoomID || out.PotAmount != 20 || out.Food != in.Food {
		t.Fatalf("state mismatch: %+v", out)
	}
	if out.StartTime == nil || *out.StartTime != start || out.EndTime != nil {
		t.Fatalf("timestamps mismatch: start=%v end=%v", out.StartTime, out.EndTime)
	}
	if len(out.Players) != 1 || out.Players[0].Snake[0] != (game.Position{X: 1, Y: 2}) {
		t.Fatalf("players mismatch: %+v", out.Players)
	}
}

func TestCodecByName(t *testing.T) {
	for name, want := range map[string]string{"": "json", "json": "json", "msgpack": "msgpack"} {
		c, ok := CodecByName(name)
		if !ok || c.Name() != want {
			t.Fatalf("CodecByName(%q) = %v, %v", name, c, ok)
		}
	}
	if _, ok := CodecByName("xml"); ok {
		t.Fatalf("xml should not resolve")
	}
}
