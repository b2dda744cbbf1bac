package display

import (
	"bufio"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

type fakeDisplay struct {
	shown int
	quit  bool
	err   error
}

func (f *fakeDisplay) Show(gocv.Mat) error {
	f.shown++
	return f.err
}

func (f *fakeDisplay) Quit() bool   { return f.quit }
func (f *fakeDisplay) Close() error { return nil }

func TestMulti(t *testing.T) {

	a := &fakeDisplay{}
	b := &fakeDisplay{err: errors.New("boom")}
	m := Multi{a, b, Headless{}}

	img := gocv.NewMat()
	defer img.Close()

	assert.Error(t, m.Show(img))
	assert.Equal(t, 1, a.shown)
	assert.Equal(t, 1, b.shown)
	assert.False(t, m.Quit())

	b.quit = true
	assert.True(t, m.Quit())
	assert.NoError(t, m.Close())
}

func TestMJPEGStream(t *testing.T) {

	m := NewMJPEG(80)

	img := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
	defer img.Close()

	require.NoError(t, m.Show(img))

	srv := httptest.NewServer(m)
	defer srv.Close()
	defer m.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "multipart/x-mixed-replace"))

	rd := bufio.NewReader(resp.Body)

	line, err := rd.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "--frame\r\n", line)

	line, err = rd.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "Content-Type: image/jpeg\r\n", line)

	line, err = rd.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "\r\n", line)

	// JPEG start of image marker
	soi := make([]byte, 2)
	_, err = io.ReadFull(rd, soi)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xD8}, soi)
}

func TestMJPEGShowAfterClose(t *testing.T) {

	m := NewMJPEG(0)
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())

	img := gocv.NewMatWithSize(8, 8, gocv.MatTypeCV8UC3)
	defer img.Close()

	assert.NoError(t, m.Show(img))
	frame, _ := m.latest()
	assert.Nil(t, frame)
}
