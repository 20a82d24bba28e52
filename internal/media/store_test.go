package media

import (
	"bytes"
	"errors"
	"sync"
	"testing"
)

func TestStore_RegisterAndRead(t *testing.T) {
	s := NewStore(nil)
	h := s.Register([]byte("hello"), "video/mp4")

	if !IsHandle(h) {
		t.Fatalf("IsHandle(%q) = false", h)
	}

	data, mime, err := s.Read(h)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if !bytes.Equal(data, []byte("hello")) || mime != "video/mp4" {
		t.Errorf("Read() = %q %q", data, mime)
	}
}

func TestStore_RevokeWaitsForLeases(t *testing.T) {
	s := NewStore(nil)
	h := s.Register([]byte("clip"), "video/mp4")

	lease, err := s.Acquire(h)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	s.Revoke(h)

	if _, err := s.Acquire(h); !errors.Is(err, ErrUnknownHandle) {
		t.Errorf("Acquire after revoke error = %v, want ErrUnknownHandle", err)
	}
	if s.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 while lease is held", s.Len())
	}
	if string(lease.Data) != "clip" {
		t.Errorf("leased data = %q", lease.Data)
	}

	lease.Release()
	lease.Release()

	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0 after release", s.Len())
	}
}

func TestStore_Inline(t *testing.T) {
	s := NewStore(nil)
	h := s.Register([]byte{0x00, 0x01}, "audio/mpeg")

	uri, err := s.Inline(h)
	if err != nil {
		t.Fatalf("Inline() error = %v", err)
	}
	mime, data, err := DecodeDataURI(uri)
	if err != nil {
		t.Fatalf("DecodeDataURI() error = %v", err)
	}
	if mime != "audio/mpeg" || !bytes.Equal(data, []byte{0x00, 0x01}) {
		t.Errorf("round trip = %q %v", mime, data)
	}
}

func TestStore_ConcurrentLeases(t *testing.T) {
	s := NewStore(nil)
	h := s.Register([]byte("shared"), "video/mp4")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lease, err := s.Acquire(h)
			if err != nil {
				return
			}
			lease.Release()
		}()
	}
	wg.Wait()

	s.Revoke(h)
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
}

func TestDecodeDataURI_Malformed(t *testing.T) {
	bad := []string{
		"",
		"https://x.example/a.mp4",
		"data:video/mp4,plain",
		"data:video/mp4;base64",
		"data:video/mp4;base64,@@@",
	}
	for _, s := range bad {
		if _, _, err := DecodeDataURI(s); !errors.Is(err, ErrMalformedDataURI) {
			t.Errorf("DecodeDataURI(%q) error = %v, want ErrMalformedDataURI", s, err)
		}
	}
}
