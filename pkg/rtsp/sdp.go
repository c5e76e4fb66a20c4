package rtsp

import (
	"net"

	"github.com/pion/sdp/v3"
)

// describeSDP builds the DESCRIBE body: one JPEG video track, media
// carried in-band on the RTSP connection.
func (s *Server) describeSDP() []byte {
	sd := &sdp.SessionDescription{
		Origin: sdp.Origin{
			Username:       "-",
			SessionID:      uint64(s.SessionID),
			SessionVersion: 1,
			NetworkType:    "IN",
			AddressType:    "IP4",
			UnicastAddress: LocalIP(),
		},
		SessionName: "camd stream",
		ConnectionInformation: &sdp.ConnectionInformation{
			NetworkType: "IN",
			AddressType: "IP4",
			Address:     &sdp.Address{Address: "0.0.0.0"},
		},
		TimeDescriptions: []sdp.TimeDescription{{}},
		MediaDescriptions: []*sdp.MediaDescription{
			{
				MediaName: sdp.MediaName{
					Media:   "video",
					Port:    sdp.RangedPort{Value: s.Port()},
					Protos:  []string{"RTP", "AVP"},
					Formats: []string{"26"},
				},
				Attributes: []sdp.Attribute{
					sdp.NewAttribute("control", "trackID=0"),
				},
			},
		},
	}

	b, err := sd.Marshal()
	if err != nil {
		return nil
	}
	return b
}

// LocalIP returns the first non-loopback IPv4 address, or 0.0.0.0.
func LocalIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "0.0.0.0"
	}
	for _, addr := range addrs {
		if ipn, ok := addr.(*net.IPNet); ok && !ipn.IP.IsLoopback() {
			if ip4 := ipn.IP.To4(); ip4 != nil {
				return ip4.String()
			}
		}
	}
	return "0.0.0.0"
}
