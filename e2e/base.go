package e2e

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"chat-gateway/protocol"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"
)

type BaseGatewaySuite struct {
	suite.Suite
	Config Config
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseGatewaySuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.GatewayAddr == "" {
		s.T().Skip("GATEWAY_ADDR not set, skipping end-to-end suite")
	}
}

// Connect dials the gateway with the given token, waits for the
// connection_established handshake frame and returns the connection along
// with the identity the gateway resolved for it.
func (s *BaseGatewaySuite) Connect(name, token string) (*websocket.Conn, protocol.UserInfo) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)

	u := url.URL{Scheme: "ws", Host: s.Config.GatewayAddr, Path: "/ws",
		RawQuery: "token=" + url.QueryEscape(token)}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	s.Require().NoError(err, "Failed to dial gateway at %s", s.Config.GatewayAddr)

	env := s.WaitFor(conn, protocol.TypeConnectionEstablished)
	var identity protocol.UserInfo
	s.Require().NoError(json.Unmarshal(env.Data, &identity))
	s.Require().NotEmpty(identity.UserID)
	return conn, identity
}

// Send marshals and writes one envelope.
func (s *BaseGatewaySuite) Send(conn *websocket.Conn, envType string, payload any) {
	data, err := json.Marshal(payload)
	s.Require().NoError(err)
	frame, err := json.Marshal(protocol.Envelope{Type: envType, Data: data})
	s.Require().NoError(err)
	s.logEnvelope("-->", envType, data)
	s.Require().NoError(conn.WriteMessage(websocket.TextMessage, frame))
}

// WaitFor reads frames until one of the wanted type arrives, skipping
// unrelated presence traffic.
func (s *BaseGatewaySuite) WaitFor(conn *websocket.Conn, wantType string) protocol.Envelope {
	s.Require().NoError(conn.SetReadDeadline(time.Now().Add(5 * time.Second)))
	for {
		_, raw, err := conn.ReadMessage()
		s.Require().NoError(err, "waiting for %q", wantType)
		env, err := protocol.Decode(raw)
		s.Require().NoError(err)
		s.logEnvelope("<--", env.Type, env.Data)
		if env.Type == wantType {
			return env
		}
	}
}

func (s *BaseGatewaySuite) logEnvelope(direction, envType string, data []byte) {
	line := fmt.Sprintf("%s %s", direction, envType)
	if s.Config.DebugJSON {
		line = fmt.Sprintf("%s %s", line, string(data))
	}
	if s.Config.Colours {
		line = color.New(color.FgCyan).Render(line)
	}
	s.T().Log(line)
}
