package speech

import (
	"fmt"
	"log"
)

// FactoryOptions selects and configures a synthesis backend.
type FactoryOptions struct {
	// Backend is one of auto, remote, local, mock.
	Backend string
	Remote  RemoteOptions
	// LocalCommand and LocalArgs configure the local backend.
	LocalCommand string
	LocalArgs    []string
}

// NewSynthesizer builds the configured backend. In auto mode it
// prefers the remote API when a key is present, falls back to the
// local command, and lands on the mock so the system stays usable
// without any synthesis capability.
func NewSynthesizer(opts FactoryOptions) (Synthesizer, error) {
	switch opts.Backend {
	case "remote":
		return NewRemoteSynthesizer(opts.Remote)
	case "local":
		return NewLocalSynthesizer(opts.LocalCommand, opts.LocalArgs)
	case "mock":
		return NewMockSynthesizer(), nil
	case "", "auto":
		if opts.Remote.APIKey != "" {
			s, err := NewRemoteSynthesizer(opts.Remote)
			if err == nil {
				log.Printf("speech: using remote synthesis backend")
				return s, nil
			}
			log.Printf("speech: remote backend unavailable: %v", err)
		}
		if s, err := NewLocalSynthesizer(opts.LocalCommand, opts.LocalArgs); err == nil {
			log.Printf("speech: using local synthesis backend (%s)", opts.LocalCommand)
			return s, nil
		}
		log.Printf("speech: no synthesis backend available, using mock")
		return NewMockSynthesizer(), nil
	default:
		return nil, fmt.Errorf("speech: unknown backend %q", opts.Backend)
	}
}
