package decode

import (
	"fmt"
	"math"
	"strings"
)

// Record is the structured result of one type-specific field decoding: a
// type label (possibly with inline values) and the ordered condition text.
type Record struct {
	Event      string
	Conditions string
	Unknown    bool
}

// Conversion helpers shared by the decoders.

func mvToV(mv uint32) float64 { return float64(mv) / 1000.0 }

func ratioPercent(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num * 100 / den
}

func onOff(b bool) string {
	if b {
		return "On"
	}
	return "Off"
}

// hexBytes renders bytes the way the reference does: "0x1a 0x2b".
func hexBytes(bs []byte) string {
	parts := make([]string, len(bs))
	for i, b := range bs {
		parts[i] = fmt.Sprintf("0x%02x", b)
	}
	return strings.Join(parts, " ")
}

// enumOr resolves an enumeration label, falling back to the raw integer for
// codes outside the documented set.
func enumOr(table map[int]string, code int) string {
	if s, ok := table[code]; ok {
		return s
	}
	return fmt.Sprintf("%d", code)
}

// Board / power events.

func boardStatus(p pbuf) Record {
	causes := map[int]string{0x04: "Software"}
	cause, ok := causes[int(p.u8(0x00))]
	if !ok {
		cause = "Unknown"
	}
	return Record{Event: "BMS Reset", Conditions: cause}
}

func keyState(p pbuf) Record {
	on := p.flag(0x00)
	ev := "Key " + onOff(on)
	if on {
		ev += " " // trailing space matches the reference output
	}
	return Record{Event: ev}
}

func powerState(p pbuf) Record {
	sources := map[int]string{
		0x01: "Key Switch",
		0x02: "Ext Charger 0",
		0x03: "Ext Charger 1",
		0x04: "Onboard Charger",
	}
	src, ok := sources[int(p.u8(0x01))]
	if !ok {
		src = "Unknown"
	}
	return Record{Event: "Power " + onOff(p.flag(0x00)), Conditions: src}
}

func sevconPowerState(p pbuf) Record {
	return Record{Event: "Sevcon Turned " + onOff(p.flag(0x00))}
}

func bluetoothState(pbuf) Record {
	return Record{Event: "BT RX buffer reset"}
}

// BMS battery events.

type chargeFields struct {
	ah     float64
	b      int
	l, h   uint16
	pt, bt uint8
	soc    uint8
	pv     uint32
}

func readChargeFields(p pbuf) chargeFields {
	return chargeFields{
		ah:  math.Trunc(float64(p.u32(0x06)) / 1000000.0),
		b:   int(p.u16(0x02)) - int(p.u16(0x00)),
		l:   p.u16(0x00),
		h:   p.u16(0x02),
		pt:  p.u8(0x04),
		bt:  p.u8(0x05),
		soc: p.u8(0x0a),
		pv:  p.u32(0x0b),
	}
}

func bmsDischargeLevel(p pbuf) Record {
	bike := map[int]string{
		0x01: "Bike On",
		0x02: "Charge",
		0x03: "Idle",
	}
	f := readChargeFields(p)
	return Record{
		Event: "Discharge level",
		Conditions: fmt.Sprintf(
			"%03.0f AH, SOC:%3d%%, I:%3.0fA, L:%d, l:%d, H:%d, B:%03d, PT:%03dC, BT:%03dC, PV:%6d, M:%s",
			f.ah, f.soc, math.Trunc(float64(p.i32(0x10))/1000000.0),
			f.l, p.u16(0x14), f.h, f.b, f.pt, f.bt, f.pv,
			enumOr(bike, int(p.u8(0x0f)))),
	}
}

func bmsChargeFull(p pbuf) Record {
	f := readChargeFields(p)
	return Record{
		Event: "Charged To Full",
		Conditions: fmt.Sprintf(
			"%03.0f AH, SOC: %d%%,         L:%d,         H:%d, B:%03d, PT:%03dC, BT:%03dC, PV:%6d",
			f.ah, f.soc, f.l, f.h, f.b, f.pt, f.bt, f.pv),
	}
}

func bmsDischargeLow(p pbuf) Record {
	f := readChargeFields(p)
	return Record{
		Event: "Discharged To Low",
		Conditions: fmt.Sprintf(
			"%03.0f AH, SOC:%3d%%,         L:%d,         H:%d, B:%03d, PT:%03dC, BT:%03dC, PV:%6d",
			f.ah, f.soc, f.l, f.h, f.b, f.pt, f.bt, f.pv),
	}
}

func bmsSystemState(p pbuf) Record {
	return Record{Event: "System Turned " + onOff(p.flag(0x00))}
}

func bmsSOCAdjVoltage(p pbuf) Record {
	return Record{
		Event: "SOC adjusted for voltage",
		Conditions: fmt.Sprintf(
			"old:   %duAH (soc:%d%%), new:   %duAH (soc:%d%%), low cell: %d mV",
			p.u32(0x00), p.u8(0x04), p.u32(0x05), p.u8(0x09), p.u16(0x0a)),
	}
}

func bmsCurrSensZero(p pbuf) Record {
	return Record{
		Event: "Current Sensor Zeroed",
		Conditions: fmt.Sprintf("old: %dmV, new: %dmV, corrfact: %d",
			p.u16(0x00), p.u16(0x02), p.u8(0x04)),
	}
}

func bmsHibernateState(p pbuf) Record {
	if p.flag(0x00) {
		return Record{Event: "Entering Hibernate"}
	}
	return Record{Event: "Exiting Hibernate"}
}

func bmsIsolationFault(p pbuf) Record {
	return Record{
		Event:      "Chassis Isolation Fault",
		Conditions: fmt.Sprintf("%d ohms to cell %d", p.u32(0x00), p.u8(0x04)),
	}
}

func bmsReflash(p pbuf) Record {
	return Record{
		Event:      "BMS Reflash",
		Conditions: fmt.Sprintf("Revision %d, Built %s", p.u8(0x00), p.str(0x01, 20)),
	}
}

func bmsChangeCANID(p pbuf) Record {
	return Record{
		Event:      "Changed CAN Node ID",
		Conditions: fmt.Sprintf("old: %02d, new: %02d", p.u8(0x00), p.u8(0x01)),
	}
}

func bmsContactorState(p pbuf) Record {
	packV := p.u32(0x01)
	switchedV := p.u32(0x05)
	state := "Opened"
	if p.flag(0x00) {
		state = "Closed"
	}
	return Record{
		Event: "Contactor was " + state,
		Conditions: fmt.Sprintf(
			"Pack V: %dmV, Switched V: %dmV, Prechg Pct: %2.0f%%, Dischg Cur: %dmA",
			packV, switchedV, ratioPercent(float64(switchedV), float64(packV)), p.i32(0x09)),
	}
}

func bmsDischargeCut(p pbuf) Record {
	return Record{
		Event:      "Discharge cutback",
		Conditions: fmt.Sprintf("%2.0f%%", ratioPercent(float64(p.u8(0x00)), 255.0)),
	}
}

func bmsContactorDrive(p pbuf) Record {
	return Record{
		Event: "Contactor drive turned on",
		Conditions: fmt.Sprintf("Pack V: %dmV, Switched V: %dmV, Duty Cycle: %d%%",
			p.u32(0x01), p.u32(0x05), p.u8(0x09)),
	}
}

// CAN link events.

func batteryCANLinkUp(p pbuf) Record {
	return Record{Event: fmt.Sprintf("Module %02d CAN Link Up", p.u8(0x00))}
}

func batteryCANLinkDown(p pbuf) Record {
	return Record{Event: fmt.Sprintf("Module %02d CAN Link Down", p.u8(0x00))}
}

func sevconCANLinkUp(pbuf) Record {
	return Record{Event: "Sevcon CAN Link Up"}
}

func sevconCANLinkDown(pbuf) Record {
	return Record{Event: "Sevcon CAN Link Down"}
}

// Status blocks.

func runStatus(p pbuf) Record {
	mods := map[int]string{
		0x00: "00",
		0x01: "10",
		0x02: "01",
		0x03: "11",
	}
	mod, ok := mods[int(p.u8(0x12))]
	if !ok {
		mod = "Unknown"
	}
	return Record{
		Event: "Riding",
		Conditions: fmt.Sprintf(
			"PackTemp: h %dC, l %dC, PackSOC:%3d%%, Vpack:%7.3fV, MotAmps:%4d, BattAmps:%4d, "+
				"Mods: %s, MotTemp:%4dC, CtrlTemp:%4dC, AmbTemp:%4dC, MotRPM:%4d, Odo:%5dkm",
			p.u8(0x00), p.u8(0x01), p.u16(0x02), mvToV(p.u32(0x04)),
			p.i16(0x13), p.i16(0x10), mod,
			p.i16(0x08), p.i16(0x0a), p.i16(0x15), p.u16(0x0c), p.u32(0x17)),
	}
}

func chargingStatus(p pbuf) Record {
	return Record{
		Event: "Charging",
		Conditions: fmt.Sprintf(
			"PackTemp: h %dC, l %dC, AmbTemp: %dC, PackSOC:%3d%%, Vpack:%7.3fV, "+
				"BattAmps: %3d, Mods: %02b, MbbChgEn: Yes, BmsChgEn: No",
			p.u8(0x00), p.u8(0x01), p.i8(0x0d), p.u16(0x02), mvToV(p.u32(0x04)),
			p.i8(0x08), p.u8(0x0c)),
	}
}

func disarmedStatus(p pbuf) Record {
	return Record{
		Event: "Disarmed",
		Conditions: fmt.Sprintf(
			"PackTemp: h %dC, l %dC, PackSOC:%3d%%, Vpack:%03.3fV, MotAmps:%4d, BattAmps:%4d, "+
				"Mods: %02b, MotTemp:%4dC, CtrlTemp:%4dC, AmbTemp:%4dC, MotRPM:%4d, Odo:%5dkm",
			p.u8(0x00), p.u8(0x01), p.u16(0x02), mvToV(p.u32(0x04)),
			p.i8(0x13), p.u8(0x10), p.u8(0x12),
			p.i16(0x08), p.i16(0x0a), p.i16(0x15), p.u16(0x0c), p.u32(0x17)),
	}
}

// Sevcon controller events.

func sevconStatus(p pbuf) Record {
	causes := map[int]string{
		0x4681: "Preop",
		0x4884: "Sequence Fault",
		0x4981: "Throttle Fault",
	}
	sevCode := p.u16(0x02)
	cause, ok := causes[int(sevCode)]
	if !ok {
		cause = "Unknown"
	}
	return Record{
		Event: "SEVCON CAN EMCY Frame",
		Conditions: fmt.Sprintf(
			"Error Code: 0x%04X, Error Reg: 0x%02X, Sevcon Error Code: 0x%04X, Data: %s, %s",
			p.u16(0x00), p.u8(0x04), sevCode, hexBytesUpper(p.tail(0x05)), cause),
	}
}

// hexBytesUpper renders trailing frame data as bare uppercase hex pairs.
func hexBytesUpper(bs []byte) string {
	parts := make([]string, len(bs))
	for i, b := range bs {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return strings.Join(parts, " ")
}

// Charger / module events.

func chargerStatus(p pbuf) Record {
	states := map[int]string{
		0x00: "Disconnected",
		0x01: "Connected",
	}
	names := map[int]string{
		0x00: "Calex 720W",
		0x01: "Calex 1200W",
		0x02: "External Chg 0",
		0x03: "External Chg 1",
	}
	id := int(p.u8(0x00))
	name, ok := names[id]
	if !ok {
		name = "Unknown"
	}
	return Record{
		Event: fmt.Sprintf("%s Charger %d %-13s", name, id, enumOr(states, int(p.u8(0x01)))),
	}
}

func batteryStatus(p pbuf) Record {
	const (
		evOpening    = "Opening Contactor"
		evClosing    = "Closing Contactor"
		evRegistered = "Registered"
	)
	events := map[int]string{
		0x00: evOpening,
		0x01: evClosing,
		0x02: evRegistered,
	}
	code := int(p.u8(0x00))
	name, ok := events[code]
	if !ok {
		name = fmt.Sprintf("Unknown (0x%02x)", code)
	}

	modVolt := mvToV(p.u32(0x02))
	sysMax := mvToV(p.u32(0x06))
	sysMin := mvToV(p.u32(0x0a))
	capVolt := mvToV(p.u32(0x0e))
	serial := p.str(0x14, len(p)-0x14)

	var conditions string
	switch name {
	case evOpening:
		conditions = fmt.Sprintf("vmod: %7.3fV, batt curr: %3.0fA",
			modVolt, float64(p.i16(0x12)))
	case evClosing:
		conditions = fmt.Sprintf(
			"vmod: %7.3fV, maxsys: %7.3fV, minsys: %7.3fV, diff: %0.3fV, vcap: %6.3fV, prechg: %2.0f%%",
			modVolt, sysMax, sysMin, sysMax-sysMin, capVolt,
			ratioPercent(capVolt, modVolt))
	case evRegistered:
		conditions = fmt.Sprintf("serial: %s,  vmod: %3.3fV", serial, modVolt)
	}
	return Record{
		Event:      fmt.Sprintf("Module %02d %s", p.u8(0x01), name),
		Conditions: conditions,
	}
}

func batteryContactorClosed(p pbuf) Record {
	return Record{Event: fmt.Sprintf("Battery module %02d contactor closed", p.u8(0x00))}
}

// Current limiting / isolation.

func dischargeCurrentLimited(p pbuf) Record {
	limit := p.u16(0x00)
	maxAmp := p.u16(0x05)
	return Record{
		Event: "Batt Dischg Cur Limited",
		Conditions: fmt.Sprintf("%d A (%.2f%%), MinCell: %dmV, MaxPackTemp: %dC",
			limit, ratioPercent(float64(limit), float64(maxAmp)), p.u16(0x02), p.u8(0x04)),
	}
}

func lowChassisIsolation(p pbuf) Record {
	return Record{
		Event:      "Low Chassis Isolation",
		Conditions: fmt.Sprintf("%d KOhms to cell %d", p.u32(0x00), p.u8(0x04)),
	}
}

func prechargeDecayTooSteep(pbuf) Record {
	return Record{Event: "Precharge Decay Too Steep. Restarting Sevcon."}
}

// debugMessage is a free-text entry: ASCII to end of payload, final byte
// excluded (it is a terminator on the wire).
func debugMessage(p pbuf) Record {
	return Record{Event: p.str(0x00, len(p)-1)}
}
