package domain

import "errors"

var (
	ErrSessionNotReady       = errors.New("signaling session not ready")
	ErrSessionReleased       = errors.New("signaling session released")
	ErrLoginExhausted        = errors.New("signaling login attempts exhausted")
	ErrUnknownMessageType    = errors.New("unknown signaling message type")
	ErrSendTooSoon           = errors.New("chat send interval below minimum")
	ErrHistoryAlreadyLoaded  = errors.New("chat history already loaded")
	ErrInvalidRecordingState = errors.New("invalid recording state transition")
	ErrCredentialMint        = errors.New("recorder credential minting failed")
	ErrNoRecordingOutput     = errors.New("recording stop returned an empty manifest")
)
