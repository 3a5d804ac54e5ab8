// Package transcription keeps a continuous speech-to-text session alive.
//
// Live engines end their streams on their own, typically after a few
// seconds of silence. A [Session] wraps an [Engine] and restarts it across
// those natural ends, bounded by a silence threshold and a [RestartBudget],
// while device failures stop it for good.
//
// # Engines
//
//   - transcription/deepgram: Deepgram live websocket API
//
// Engines register a [Factory] by name and are built with [NewEngine]:
//
//	import _ "github.com/kbukum/livecue/transcription/deepgram"
//
//	engine, err := transcription.NewEngine(transcription.EngineConfig{
//	    Provider: "deepgram",
//	    APIKey:   key,
//	})
//	session := transcription.NewSession(engine, cfg, transcription.WithHooks(hooks))
//	session.Start()
//	defer session.Stop()
package transcription
