package decode

import "fmt"

// decodeFunc turns an escape-decoded payload into a structured record. Every
// decoder consumes exactly the entry's declared payload; reads past the end
// see zeros, so none of them can fail on a short entry.
type decodeFunc func(pbuf) Record

// registry is the closed map from entry type code to its decoder. Codes
// absent here are firmware events that have been observed but not yet
// documented; they fall through to the raw-hex rendering so new firmware
// revisions keep decoding.
var registry = map[byte]decodeFunc{
	0x01: boardStatus,
	0x03: bmsDischargeLevel,
	0x04: bmsChargeFull,
	0x06: bmsDischargeLow,
	0x08: bmsSystemState,
	0x09: keyState,
	0x0b: bmsSOCAdjVoltage,
	0x0d: bmsCurrSensZero,
	0x10: bmsHibernateState,
	0x11: bmsIsolationFault,
	0x12: bmsReflash,
	0x13: bmsChangeCANID,
	0x15: bmsContactorState,
	0x16: bmsDischargeCut,
	0x18: bmsContactorDrive,
	0x28: batteryCANLinkUp,
	0x29: batteryCANLinkDown,
	0x2a: sevconCANLinkUp,
	0x2b: sevconCANLinkDown,
	0x2c: runStatus,
	0x2d: chargingStatus,
	0x2f: sevconStatus,
	0x30: chargerStatus,
	0x33: batteryStatus,
	0x34: powerState,
	0x36: sevconPowerState,
	0x38: bluetoothState,
	0x39: dischargeCurrentLimited,
	0x3a: lowChassisIsolation,
	0x3b: prechargeDecayTooSteep,
	0x3c: disarmedStatus,
	0x3d: batteryContactorClosed,
	0xfd: debugMessage,
}

// fallbackRecord renders an undecodable entry as a raw hex dump covering the
// full payload. The "???" condition marks it for the formatter and the
// decode summary.
func fallbackRecord(typ byte, payload pbuf) Record {
	return Record{
		Event:      hexBytes([]byte{typ}) + " " + hexBytes(payload),
		Conditions: string(rune(typ)) + "???",
		Unknown:    true,
	}
}

// decodeRecord dispatches a payload to its type decoder, falling back to the
// hex rendering for unknown codes. A decoder must never take the whole run
// down on one malformed entry, so a panic degrades to the fallback as well.
func decodeRecord(typ byte, payload []byte) (rec Record) {
	defer func() {
		if r := recover(); r != nil {
			rec = fallbackRecord(typ, payload)
			rec.Event = fmt.Sprintf("Exception caught: %s", rec.Event)
		}
	}()
	if dec, ok := registry[typ]; ok {
		return dec(payload)
	}
	return fallbackRecord(typ, payload)
}
