package netio

import (
	"bufio"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arena-server/internal/game"
	"arena-server/internal/protocol"
	"arena-server/internal/userdb"
)

func testServer(t *testing.T) (*Server, *game.Game) {
	t.Helper()
	dir := t.TempDir()
	usersPath := filepath.Join(dir, "users.txt")
	require.NoError(t, os.WriteFile(usersPath, []byte("alice secret 1\n"), 0o644))
	db, err := userdb.Load(usersPath)
	require.NoError(t, err)

	cfg := game.DefaultConfig()
	cfg.FoodTargetCount = 5
	g := game.NewGame(cfg, 1, nil)
	g.Start()

	srv := NewServer(db, nil, logrus.NewEntry(logrus.New()))
	require.NoError(t, srv.AddGame(0, g))
	return srv, g
}

func TestConnectionLoginAndField(t *testing.T) {
	srv, g := testServer(t)

	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()

	c := newConnection(serverConn, srv, logrus.NewEntry(logrus.New()))
	go c.run()

	clientConn.SetDeadline(time.Now().Add(2 * time.Second))
	clientReader := bufio.NewReader(clientConn)

	loginBody, err := protocol.Encode(protocol.Login{Login: "alice", Password: "secret", Field: 0, Level: 1})
	require.NoError(t, err)
	require.NoError(t, protocol.WriteFrame(clientConn, loginBody))

	welcomeBody, err := protocol.ReadFrame(clientReader)
	require.NoError(t, err)
	welcomeMsg, err := protocol.Decode(welcomeBody)
	require.NoError(t, err)
	welcome, ok := welcomeMsg.(protocol.Welcome)
	require.True(t, ok)
	assert.Equal(t, g.Config().K10, welcome.K10)

	_, err = g.Tick()
	require.NoError(t, err)

	fieldBody, err := protocol.ReadFrame(clientReader)
	require.NoError(t, err)
	fieldMsg, err := protocol.Decode(fieldBody)
	require.NoError(t, err)
	field, ok := fieldMsg.(protocol.Field)
	require.True(t, ok)
	assert.NotEmpty(t, field.Snakes)
}

func TestConnectionRejectsBadCredentials(t *testing.T) {
	srv, _ := testServer(t)

	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()

	c := newConnection(serverConn, srv, logrus.NewEntry(logrus.New()))
	go c.run()

	clientConn.SetDeadline(time.Now().Add(2 * time.Second))
	clientReader := bufio.NewReader(clientConn)

	loginBody, err := protocol.Encode(protocol.Login{Login: "alice", Password: "wrong", Field: 0, Level: 1})
	require.NoError(t, err)
	require.NoError(t, protocol.WriteFrame(clientConn, loginBody))

	errBody, err := protocol.ReadFrame(clientReader)
	require.NoError(t, err)
	errMsg, err := protocol.Decode(errBody)
	require.NoError(t, err)
	_, ok := errMsg.(protocol.Error)
	assert.True(t, ok)
}

func TestConnectionRejectsUnknownField(t *testing.T) {
	srv, _ := testServer(t)

	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()

	c := newConnection(serverConn, srv, logrus.NewEntry(logrus.New()))
	go c.run()

	clientConn.SetDeadline(time.Now().Add(2 * time.Second))
	clientReader := bufio.NewReader(clientConn)

	loginBody, err := protocol.Encode(protocol.Login{Login: "alice", Password: "secret", Field: 99, Level: 1})
	require.NoError(t, err)
	require.NoError(t, protocol.WriteFrame(clientConn, loginBody))

	errBody, err := protocol.ReadFrame(clientReader)
	require.NoError(t, err)
	errMsg, err := protocol.Decode(errBody)
	require.NoError(t, err)
	_, ok := errMsg.(protocol.Error)
	assert.True(t, ok)
}
