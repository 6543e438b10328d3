package audio_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/communage/communage/pkg/audio"
	"github.com/communage/communage/pkg/audio/mock"
)

func TestNewHost_UnknownBackend(t *testing.T) {
	if _, err := audio.NewHost("no-such-backend"); !errors.Is(err, audio.ErrNoHost) {
		t.Fatalf("err = %v, want ErrNoHost", err)
	}
}

func TestRegisterHost_SelectByName(t *testing.T) {
	want := &mock.Host{}
	audio.RegisterHost("test-backend", func() (audio.Host, error) { return want, nil })

	got, err := audio.NewHost("test-backend")
	if err != nil {
		t.Fatal(err)
	}
	if got != audio.Host(want) {
		t.Error("NewHost returned a different host than the factory produced")
	}
	if !slices.Contains(audio.Hosts(), "test-backend") {
		t.Errorf("Hosts() = %v, want it to contain test-backend", audio.Hosts())
	}
}

func TestRegisterHost_DuplicatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("duplicate registration did not panic")
		}
	}()
	audio.RegisterHost("dup-backend", func() (audio.Host, error) { return &mock.Host{}, nil })
	audio.RegisterHost("dup-backend", func() (audio.Host, error) { return &mock.Host{}, nil })
}
