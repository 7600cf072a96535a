package server

import (
	"context"
	"encoding/binary"
	"errors"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ricochetsec/ricochet/internal/correlation"
	"github.com/ricochetsec/ricochet/internal/metrics"
	"github.com/ricochetsec/ricochet/internal/store"
	"github.com/rs/zerolog/log"
)

const (
	dnsHeaderLen = 12

	// Response flags: QR, AA, RD, RA set, NOERROR.
	dnsResponseFlags = 0x8580

	dnsTypeA   = 1
	dnsClassIN = 1
	dnsTTL     = 60
)

// query is one parsed DNS question.
type query struct {
	id       uint16
	qname    string // dotted, lowercase
	qtype    uint16
	question []byte // raw question section, echoed into the response
}

// DNSServer answers A queries for its zone and records every query whose
// first label is a valid correlation ID. DNS is the highest-value callback
// channel: it fires even from contexts that cannot make HTTP requests.
type DNSServer struct {
	Addr  string
	Store *store.Store
}

// Run listens for UDP queries on Addr until ctx is cancelled. Reads use a
// short deadline so cancellation is observed within half a second.
func (s *DNSServer) Run(ctx context.Context) error {
	conn, err := net.ListenPacket("udp", s.Addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	log.Info().Str("addr", s.Addr).Msg("DNS callback server listening")

	buf := make([]byte, 4096)
	for {
		if ctx.Err() != nil {
			log.Info().Msg("DNS callback server stopped")
			return nil
		}

		_ = conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			log.Warn().Err(err).Msg("DNS read failed")
			continue
		}

		packet := make([]byte, n)
		copy(packet, buf[:n])
		go s.handle(conn, addr, packet)
	}
}

func (s *DNSServer) handle(conn net.PacketConn, addr net.Addr, packet []byte) {
	q, err := parseQuery(packet)
	if err != nil {
		log.Debug().Str("source", addr.String()).Err(err).Msg("Malformed DNS packet dropped")
		return
	}

	s.recordQuery(q, addr)

	if _, err := conn.WriteTo(buildResponse(q), addr); err != nil {
		log.Warn().Err(err).Msg("DNS response write failed")
	}
}

func (s *DNSServer) recordQuery(q query, addr net.Addr) {
	candidate, _, _ := strings.Cut(q.qname, ".")
	if !correlation.ValidID(candidate) {
		metrics.RecordCallback("dns", false)
		return
	}

	sourceIP := addr.String()
	if host, _, err := net.SplitHostPort(sourceIP); err == nil {
		sourceIP = host
	}

	headers := map[string]string{"qtype": strconv.Itoa(int(q.qtype))}
	known, err := s.Store.RecordCallback(candidate, sourceIP, "DNS:"+q.qname, headers, nil)
	if err != nil {
		log.Error().Err(err).Str("correlation_id", candidate).Msg("Failed to record DNS callback")
		return
	}
	metrics.RecordCallback("dns", known)

	if known {
		log.Info().
			Str("correlation_id", candidate).
			Str("source_ip", sourceIP).
			Str("qname", q.qname).
			Msg("DNS callback received")
	} else {
		log.Debug().
			Str("candidate", candidate).
			Str("source_ip", sourceIP).
			Msg("DNS query with unknown correlation ID")
	}
}

// parseQuery decodes the header and first question of a DNS packet. A
// compression pointer inside the name terminates it; pointers never occur in
// the exfiltration queries this server exists for.
func parseQuery(packet []byte) (query, error) {
	if len(packet) < dnsHeaderLen {
		return query{}, errors.New("packet shorter than header")
	}

	q := query{id: binary.BigEndian.Uint16(packet[0:2])}
	if binary.BigEndian.Uint16(packet[4:6]) == 0 {
		return query{}, errors.New("no question section")
	}

	var labels []string
	pos := dnsHeaderLen
	for {
		if pos >= len(packet) {
			return query{}, errors.New("truncated name")
		}
		length := int(packet[pos])
		if length == 0 {
			pos++
			break
		}
		if length&0xC0 == 0xC0 {
			pos += 2
			break
		}
		pos++
		if pos+length > len(packet) {
			return query{}, errors.New("truncated label")
		}
		labels = append(labels, strings.ToLower(string(packet[pos:pos+length])))
		pos += length
	}

	if pos+4 > len(packet) {
		return query{}, errors.New("truncated question")
	}
	q.qtype = binary.BigEndian.Uint16(packet[pos : pos+2])
	q.qname = strings.Join(labels, ".")
	q.question = packet[dnsHeaderLen : pos+4]
	return q, nil
}

// buildResponse assembles an authoritative answer. A queries get a single
// 127.0.0.1 record; every other type gets an empty NOERROR response.
func buildResponse(q query) []byte {
	answer := q.qtype == dnsTypeA

	resp := make([]byte, 0, dnsHeaderLen+len(q.question)+16)
	resp = binary.BigEndian.AppendUint16(resp, q.id)
	resp = binary.BigEndian.AppendUint16(resp, dnsResponseFlags)
	resp = binary.BigEndian.AppendUint16(resp, 1) // QDCOUNT
	if answer {
		resp = binary.BigEndian.AppendUint16(resp, 1) // ANCOUNT
	} else {
		resp = binary.BigEndian.AppendUint16(resp, 0)
	}
	resp = binary.BigEndian.AppendUint16(resp, 0) // NSCOUNT
	resp = binary.BigEndian.AppendUint16(resp, 0) // ARCOUNT
	resp = append(resp, q.question...)

	if answer {
		resp = append(resp, 0xC0, 0x0C) // pointer to the question name
		resp = binary.BigEndian.AppendUint16(resp, dnsTypeA)
		resp = binary.BigEndian.AppendUint16(resp, dnsClassIN)
		resp = binary.BigEndian.AppendUint32(resp, dnsTTL)
		resp = binary.BigEndian.AppendUint16(resp, 4)
		resp = append(resp, 127, 0, 0, 1)
	}
	return resp
}
