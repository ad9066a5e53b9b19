package aesdrv

import (
	"github.com/swipesensor/fpdrv/internal/ssm"
)

// Activate phase states, per spec §4.3: SET_IDLE -> SEND_READ_ID -> READ_ID
// -> (SEND_INIT_CMD <-> READ_INIT_RESPONSE)* -> [SEND_CALIBRATE ->
// READ_CALIBRATE] -> done. Grounded on aes1660.c's enum activate_states,
// generalised to also cover aes2550.c's simpler WRITE_INIT/READ_DATA/
// CALIBRATE/READ_CALIB_TABLE shape via Family.AlreadyInitByte==0 (no
// short-circuit check ever matches) and its own short InitCommands table.
const (
	activateSetIdle = iota
	activateSendReadID
	activateReadID
	activateSendInitCmd
	activateReadInitResponse
	activateSendCalibrate
	activateReadCalibrate
	activateNumStates
)

// Activate runs the activation phase to completion, reporting the result
// via Sink.OnActivateComplete and invoking onDone once the phase's SSM
// has reached its terminal state.
func (s *Session) Activate(onDone func(err error)) {
	s.initIdx = 0
	s.didInit = false
	s.activate.Start(func(m *ssm.SSM) {
		err := m.Err()
		s.Sink.OnActivateComplete(err)
		s.notifyPhaseTerminal()
		if onDone != nil {
			onDone(err)
		}
	})
}

func (s *Session) activateHandler(m *ssm.SSM) {
	switch m.State() {
	case activateSetIdle:
		s.sendCommand(s.Family.SetIdleCmd, func(err error) {
			if err != nil {
				m.MarkAborted(ioErrorf("activate: set idle"))
				return
			}
			m.NextState()
		})

	case activateSendReadID:
		s.sendCommand(s.Family.ReadIDCmd, func(err error) {
			if err != nil {
				m.MarkAborted(ioErrorf("activate: send read-id"))
				return
			}
			m.NextState()
		})

	case activateReadID:
		s.readResponse(s.Family.IDResponseLength, func(data []byte, err error) {
			if err != nil {
				m.MarkAborted(ioErrorf("activate: read id"))
				return
			}
			if len(data) < 8 {
				m.MarkAborted(protocolErrorf("activate: id response too short (%d bytes)", len(data)))
				return
			}
			if s.Family.AlreadyInitByte != 0 && data[7] == s.Family.AlreadyInitByte {
				// Already initialized: skip the init walk and calibration
				// entirely (aes1660.c's data[7]==0x23 short-circuit).
				m.MarkCompleted()
				return
			}
			if s.didInit {
				// The confirmation read after walking InitCommands once
				// came back without the expected byte: initialization did
				// not take (aes1660.c's repeated-init-failure abort).
				m.MarkAborted(protocolErrorf("activate: device did not confirm initialization"))
				return
			}
			s.didInit = true
			s.initIdx = 0
			if len(s.Family.InitCommands) == 0 {
				m.JumpToState(activateSendCalibrate)
				return
			}
			m.NextState()
		})

	case activateSendInitCmd:
		s.sendCommand(s.Family.InitCommands[s.initIdx], func(err error) {
			if err != nil {
				m.MarkAborted(ioErrorf("activate: send init cmd %d", s.initIdx))
				return
			}
			m.NextState()
		})

	case activateReadInitResponse:
		s.readResponse(s.Family.InitAckResponseLength, func(data []byte, err error) {
			if err != nil {
				m.MarkAborted(ioErrorf("activate: read init response"))
				return
			}
			if len(data) < 4 || data[0] != 0x42 || data[3] != 0x01 {
				m.MarkAborted(protocolErrorf("activate: bad init ack %v", data))
				return
			}
			s.initIdx++
			if s.initIdx >= len(s.Family.InitCommands) {
				if s.Family.VerifyInitViaReadID {
					// Re-read the device ID to confirm initialization took
					// (aes1660.c jumps back to ACTIVATE_SEND_READ_ID_CMD
					// here).
					m.JumpToState(activateSendReadID)
					return
				}
				m.JumpToState(activateSendCalibrate)
				return
			}
			m.JumpToState(activateSendInitCmd)
		})

	case activateSendCalibrate:
		s.sendCommand(s.Family.CalibrateCmd, func(err error) {
			if err != nil {
				m.MarkAborted(ioErrorf("activate: send calibrate"))
				return
			}
			m.NextState()
		})

	case activateReadCalibrate:
		s.readResponse(s.Family.CalibrateResponseLength, func(data []byte, err error) {
			if err != nil {
				m.MarkAborted(ioErrorf("activate: read calibrate"))
				return
			}
			m.MarkCompleted()
		})

	default:
		panic("aesdrv: activate handler reached an unknown state")
	}
}
