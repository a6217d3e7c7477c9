package wa

import (
	"testing"

	"github.com/stretchr/testify/require"
	waProto "go.mau.fi/whatsmeow/proto/waE2E"
	"google.golang.org/protobuf/proto"
)

func TestNormalizePhone(t *testing.T) {
	cases := map[string]string{
		"(11) 99999-0000":    "5511999990000",
		"+55 11 99999-0000":  "5511999990000",
		"011 3333-4444":      "551133334444",
		"1 (415) 555-0100":   "5514155550100",
		"351 912 345 678 90": "35191234567890",
	}
	for in, want := range cases {
		got, err := NormalizePhone(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}
}

func TestNormalizePhoneRejectsShortNumbers(t *testing.T) {
	_, err := NormalizePhone("12345")
	require.ErrorIs(t, err, ErrInvalidPhone)

	_, err = NormalizePhone("")
	require.ErrorIs(t, err, ErrInvalidPhone)
}

func TestTextOf(t *testing.T) {
	require.Equal(t, "oi", textOf(&waProto.Message{Conversation: proto.String("oi")}))
	require.Equal(t, "quoted", textOf(&waProto.Message{
		ExtendedTextMessage: &waProto.ExtendedTextMessage{Text: proto.String("quoted")},
	}))
	require.Empty(t, textOf(nil))
}
