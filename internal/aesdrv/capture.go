package aesdrv

import (
	"github.com/swipesensor/fpdrv/internal/protocol"
	"github.com/swipesensor/fpdrv/internal/reassembly"
	"github.com/swipesensor/fpdrv/internal/ssm"
)

// Capture phase states, per spec §4.3: SEND_LED -> [SEND_CALIBRATE ->
// READ_CALIBRATE] -> SEND_CAPTURE_CMD -> READ_STRIPE_DATA -> SET_IDLE ->
// done. Grounded on aes1660.c's enum capture_states (6 states, matching
// this exactly) and aes2550.c's 3-state CAPTURE_WRITE_REQS/
// CAPTURE_READ_DATA/CAPTURE_SET_IDLE (the same script with
// CalibrateInCapture false and no frame-sum heuristic).
const (
	captureSendLED = iota
	captureSendCalibrate
	captureReadCalibrate
	captureSendCaptureCmd
	captureReadStripeData
	captureSetIdle
	captureNumStates
)

// Capture runs one swipe capture to completion, reporting the
// reassembled image via Sink.OnImageCaptured before onDone runs.
func (s *Session) Capture(onDone func(err error)) {
	s.resetCapture()
	s.capture.Start(func(m *ssm.SSM) {
		err := m.Err()
		s.notifyPhaseTerminal()
		if onDone != nil {
			onDone(err)
		}
	})
}

func (s *Session) captureHandler(m *ssm.SSM) {
	switch m.State() {
	case captureSendLED:
		s.resetCapture()
		s.sendCommand(s.Family.LEDOnCmd, func(err error) {
			if err != nil {
				m.MarkAborted(ioErrorf("capture: send led"))
				return
			}
			if !s.Family.CalibrateInCapture {
				m.JumpToState(captureSendCaptureCmd)
				return
			}
			m.NextState()
		})

	case captureSendCalibrate:
		s.sendCommand(s.Family.CalibrateCmd, func(err error) {
			if err != nil {
				m.MarkAborted(ioErrorf("capture: send calibrate"))
				return
			}
			m.NextState()
		})

	case captureReadCalibrate:
		s.readResponse(s.Family.CalibrateResponseLength, func(data []byte, err error) {
			if err != nil {
				m.MarkAborted(ioErrorf("capture: read calibrate"))
				return
			}
			m.NextState()
		})

	case captureSendCaptureCmd:
		s.sendCommand(s.Family.CaptureCmd, func(err error) {
			if err != nil {
				m.MarkAborted(ioErrorf("capture: send capture cmd"))
				return
			}
			m.NextState()
		})

	case captureReadStripeData:
		// Self-loop: each IN transfer is fed to the decoder, which may
		// yield zero, one, or more frames; a strip frame re-enters this
		// state (or, for frame-sum families, decides via the heuristic),
		// a heartbeat frame advances to SET_IDLE (spec §4.3, §4.4).
		s.readCancellable(protocol.MaxFrameSize, func(data []byte, err error) {
			if s.deactivating {
				m.JumpToState(captureSetIdle)
				return
			}
			if err != nil {
				m.MarkAborted(ioErrorf("capture: read stripe data"))
				return
			}

			frames, decodeErr := s.decoder.Feed(data)
			if decodeErr != nil {
				m.MarkAborted(protocolErrorf("capture: %v", decodeErr))
				return
			}

			for _, f := range frames {
				switch protocol.Classify(f, s.Family.StripMagic, s.Family.HeartbeatMagic) {
				case protocol.FrameKindStrip:
					sum, perr := s.processStrip(f)
					if perr != nil {
						m.MarkAborted(perr)
						return
					}
					if s.Family.FrameSumThreshold > 0 {
						if sum > s.Family.FrameSumThreshold && s.frameCount < s.Family.MaxFrames {
							m.JumpToState(captureSendCaptureCmd)
							return
						}
						m.NextState()
						return
					}
					if s.frameCount >= s.Family.MaxFrames {
						m.NextState()
						return
					}
					m.JumpToState(captureReadStripeData)
					return

				case protocol.FrameKindHeartbeat:
					m.NextState()
					return

				default:
					m.MarkAborted(protocolErrorf("capture: unrecognized frame magic 0x%02x", f.Magic))
					return
				}
			}

			// No complete frame yet (a short chunk spanning a header
			// boundary); keep reading.
			m.JumpToState(captureReadStripeData)
		})

	case captureSetIdle:
		s.sendCommand(s.Family.SetIdleCmd, func(err error) {
			if err != nil {
				m.MarkAborted(ioErrorf("capture: set idle"))
				return
			}
			if s.deactivating {
				m.MarkCompleted()
				return
			}
			if emitErr := s.reassembleAndEmit(); emitErr != nil {
				m.MarkAborted(emitErr)
				return
			}
			s.setFingerPresent(false)
			m.MarkCompleted()
		})

	default:
		panic("aesdrv: capture handler reached an unknown state")
	}
}

// processStrip unpacks f's packed pixel payload, appends it to the
// accumulated strip list, and returns its contrast-stretched pixel sum
// (used by the frame-sum "still scanning" heuristic; families that don't
// use the heuristic can ignore the return value).
func (s *Session) processStrip(f protocol.Frame) (int, error) {
	off := s.Family.StripPayloadOffset - protocol.HeaderSize
	stripSize := s.Family.FrameWidth * s.Family.FrameHeight / 2
	if off < 0 || off+stripSize > len(f.Payload) {
		return 0, protocolErrorf("capture: strip payload too short (%d bytes, want offset %d + %d)", len(f.Payload), off, stripSize)
	}

	unpacked, err := reassembly.Unpack(f.Payload[off:off+stripSize], s.Family.FrameWidth, s.Family.FrameHeight, s.Family.ColorLUT)
	if err != nil {
		return 0, protocolErrorf("capture: %v", err)
	}

	cp := make([]byte, len(unpacked))
	copy(cp, unpacked)
	s.strips = append(s.strips, cp)
	s.frameCount++

	sum := 0
	for _, b := range unpacked {
		sum += int(b)
	}
	return sum, nil
}
