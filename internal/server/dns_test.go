package server

import (
	"encoding/binary"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildQuery assembles a minimal single-question DNS query packet.
func buildQuery(id uint16, qname string, qtype uint16) []byte {
	packet := make([]byte, 0, 64)
	packet = binary.BigEndian.AppendUint16(packet, id)
	packet = binary.BigEndian.AppendUint16(packet, 0x0100) // RD
	packet = binary.BigEndian.AppendUint16(packet, 1)      // QDCOUNT
	packet = binary.BigEndian.AppendUint16(packet, 0)
	packet = binary.BigEndian.AppendUint16(packet, 0)
	packet = binary.BigEndian.AppendUint16(packet, 0)

	start := 0
	for i := 0; i <= len(qname); i++ {
		if i == len(qname) || qname[i] == '.' {
			packet = append(packet, byte(i-start))
			packet = append(packet, qname[start:i]...)
			start = i + 1
		}
	}
	packet = append(packet, 0)
	packet = binary.BigEndian.AppendUint16(packet, qtype)
	packet = binary.BigEndian.AppendUint16(packet, dnsClassIN)
	return packet
}

func TestParseQuery(t *testing.T) {
	packet := buildQuery(0xBEEF, testID+".cb.example", dnsTypeA)

	q, err := parseQuery(packet)
	require.NoError(t, err)
	assert.Equal(t, uint16(0xBEEF), q.id)
	assert.Equal(t, testID+".cb.example", q.qname)
	assert.Equal(t, uint16(dnsTypeA), q.qtype)
}

func TestParseQueryLowercasesName(t *testing.T) {
	q, err := parseQuery(buildQuery(1, "A1B2C3D4E5F60718.CB.Example", dnsTypeA))
	require.NoError(t, err)
	assert.Equal(t, "a1b2c3d4e5f60718.cb.example", q.qname)
}

func TestParseQueryRejectsShortPackets(t *testing.T) {
	for _, size := range []int{0, 5, 11} {
		_, err := parseQuery(make([]byte, size))
		assert.Error(t, err, "size %d", size)
	}
}

func TestParseQueryRejectsEmptyQuestion(t *testing.T) {
	packet := make([]byte, 12)
	binary.BigEndian.PutUint16(packet[0:2], 7)
	_, err := parseQuery(packet)
	assert.Error(t, err)
}

func TestBuildResponseForAQuery(t *testing.T) {
	q, err := parseQuery(buildQuery(0x1234, testID+".cb.example", dnsTypeA))
	require.NoError(t, err)

	resp := buildResponse(q)
	require.GreaterOrEqual(t, len(resp), dnsHeaderLen+len(q.question)+16)

	assert.Equal(t, uint16(0x1234), binary.BigEndian.Uint16(resp[0:2]), "transaction ID echoed")
	assert.Equal(t, uint16(dnsResponseFlags), binary.BigEndian.Uint16(resp[2:4]))
	assert.Equal(t, uint16(1), binary.BigEndian.Uint16(resp[4:6]), "QDCOUNT")
	assert.Equal(t, uint16(1), binary.BigEndian.Uint16(resp[6:8]), "ANCOUNT")

	// Question echoed verbatim after the header.
	assert.Equal(t, q.question, resp[dnsHeaderLen:dnsHeaderLen+len(q.question)])

	// Answer record layout.
	a := resp[dnsHeaderLen+len(q.question):]
	assert.Equal(t, []byte{0xC0, 0x0C}, a[0:2], "compressed name pointer")
	assert.Equal(t, uint16(dnsTypeA), binary.BigEndian.Uint16(a[2:4]))
	assert.Equal(t, uint16(dnsClassIN), binary.BigEndian.Uint16(a[4:6]))
	assert.Equal(t, uint32(dnsTTL), binary.BigEndian.Uint32(a[6:10]))
	assert.Equal(t, uint16(4), binary.BigEndian.Uint16(a[10:12]))
	assert.Equal(t, []byte{127, 0, 0, 1}, a[12:16])
}

func TestBuildResponseForNonAQuery(t *testing.T) {
	const qtypeTXT = 16
	q, err := parseQuery(buildQuery(1, testID+".cb.example", qtypeTXT))
	require.NoError(t, err)

	resp := buildResponse(q)
	assert.Equal(t, uint16(0), binary.BigEndian.Uint16(resp[6:8]), "ANCOUNT")
	assert.Len(t, resp, dnsHeaderLen+len(q.question), "no answer bytes")
}

func TestRecordQueryKnownID(t *testing.T) {
	st := openTestStore(t)
	seedInjection(t, st, testID)
	srv := &DNSServer{Store: st}

	q, err := parseQuery(buildQuery(1, testID+".cb.example", dnsTypeA))
	require.NoError(t, err)
	srv.recordQuery(q, &net.UDPAddr{IP: net.IPv4(203, 0, 113, 9), Port: 53124})

	callbacks, err := st.CallbacksForInjection(testID)
	require.NoError(t, err)
	require.Len(t, callbacks, 1)
	assert.Equal(t, "DNS:"+testID+".cb.example", callbacks[0].RequestPath)
	assert.Equal(t, "203.0.113.9", callbacks[0].SourceIP)
	assert.Equal(t, "1", callbacks[0].Headers["qtype"])
	assert.Empty(t, callbacks[0].Body)
}

func TestRecordQueryIgnoresNonIDNames(t *testing.T) {
	st := openTestStore(t)
	seedInjection(t, st, testID)
	srv := &DNSServer{Store: st}

	for _, qname := range []string{
		"www.cb.example",
		"A1B2C3D4E5F60718.cb.example", // lowered during parse, so this one is valid
	} {
		q, err := parseQuery(buildQuery(1, qname, dnsTypeA))
		require.NoError(t, err)
		srv.recordQuery(q, &net.UDPAddr{IP: net.IPv4(203, 0, 113, 9), Port: 53124})
	}

	// Only the hex name recorded; "www" never matched.
	callbacks, err := st.CallbacksForInjection(testID)
	require.NoError(t, err)
	assert.Len(t, callbacks, 1)
}
