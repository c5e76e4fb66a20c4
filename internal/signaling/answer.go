package signaling

import (
	"fmt"
	"math/rand"

	"github.com/pion/sdp/v3"
)

// answerSDP synthesizes the SDP answer for an offer. The ICE and DTLS
// fields are randomized placeholders, not cryptographically meaningful:
// the media actually flows as raw binary WebSocket messages.
func answerSDP() string {
	sd := &sdp.SessionDescription{
		Origin: sdp.Origin{
			Username:       "-",
			SessionID:      uint64(rand.Int31n(1000000)),
			SessionVersion: 2,
			NetworkType:    "IN",
			AddressType:    "IP4",
			UnicastAddress: "127.0.0.1",
		},
		SessionName:      "-",
		TimeDescriptions: []sdp.TimeDescription{{}},
		Attributes: []sdp.Attribute{
			sdp.NewAttribute("group", "BUNDLE video"),
		},
		MediaDescriptions: []*sdp.MediaDescription{
			{
				MediaName: sdp.MediaName{
					Media:   "video",
					Port:    sdp.RangedPort{Value: 9},
					Protos:  []string{"UDP", "TLS", "RTP", "SAVPF"},
					Formats: []string{"96"},
				},
				ConnectionInformation: &sdp.ConnectionInformation{
					NetworkType: "IN",
					AddressType: "IP4",
					Address:     &sdp.Address{Address: "0.0.0.0"},
				},
				Attributes: []sdp.Attribute{
					sdp.NewAttribute("rtcp", "9 IN IP4 0.0.0.0"),
					sdp.NewAttribute("ice-ufrag", randHex()),
					sdp.NewAttribute("ice-pwd", randHex()),
					sdp.NewAttribute("fingerprint", "sha-256 "+randHex()),
					sdp.NewAttribute("setup", "active"),
					sdp.NewAttribute("mid", "video"),
					sdp.NewPropertyAttribute("sendonly"),
					sdp.NewPropertyAttribute("rtcp-mux"),
					sdp.NewPropertyAttribute("rtcp-rsize"),
				},
			},
		},
	}

	b, err := sd.Marshal()
	if err != nil {
		return ""
	}
	return string(b)
}

func randHex() string {
	return fmt.Sprintf("%x", rand.Uint32())
}
