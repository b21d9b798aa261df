package remoteid

import (
	"encoding/hex"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/phoenix.go/pkg/bits"
)

func phxRecord() Record {
	pos := Position{Lat: 38.8977, Long: -77.0365, Alt: 100}
	return Record{
		SerialNumber: MustSerialNumber("PHX0000000000000001"),
		ControlPos:   pos,
		AircraftPos:  pos,
		Timestamp:    Timestamp{Year: 2024, Month: 6, Day: 15, Millis: 43200000},
		Status:       StatusOK,
	}
}

func TestRecordBits(t *testing.T) {
	require.Equal(t, 488, RecordBits)
}

func TestSerializeRoundTrip(t *testing.T) {
	testCases := []struct {
		name   string
		record Record
	}{
		{"phx", phxRecord()},
		{"zero", Record{}},
		{"emergency", func() Record {
			r := phxRecord()
			r.Status = StatusEmergency
			r.Velocity = Velocity{X: -1.5, Y: 12.25, Z: -0.125}
			r.AircraftPos = Position{Lat: -33.8688, Long: 151.2093, Alt: math.MaxUint16}
			return r
		}()},
		{"extremes", Record{
			SerialNumber: MustSerialNumber("~~~~~~~~~~~~~~~~~~~~"),
			ControlPos:   Position{Lat: -90, Long: 180},
			AircraftPos:  Position{Lat: 90, Long: -180, Alt: 1},
			Velocity:     Velocity{X: math.MaxFloat32, Y: -math.SmallestNonzeroFloat32, Z: float32(math.Inf(1))},
			Timestamp:    Timestamp{Year: math.MaxUint16, Month: 12, Day: 31, Millis: MillisPerDay - 1},
		}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b := Serialize(tc.record)
			require.Equal(t, RecordBits, b.Len())
			r, err := Deserialize(b)
			require.NoError(t, err)
			require.Equal(t, tc.record, r)
		})
	}
}

func TestSerializeLayout(t *testing.T) {
	r := Record{
		SerialNumber: MustSerialNumber("PHX0000000000000001"),
		ControlPos:   Position{Lat: 38.8977, Long: -77.0365, Alt: 100},
		AircraftPos:  Position{Lat: 38.9012, Long: -77.0401, Alt: 250},
		Velocity:     Velocity{X: 1.5, Y: -2.25, Z: 0.5},
		Timestamp:    Timestamp{Year: 2024, Month: 6, Day: 15, Millis: 43200000},
		Status:       StatusEmergency,
	}
	b := Serialize(r)
	float := func(v float32) uint64 { return uint64(math.Float32bits(v)) }
	testCases := []struct {
		name   string
		offset int
		width  int
		value  uint64
	}{
		{"serial[0]", 0, 8, 'P'},
		{"serial[1]", 8, 8, 'H'},
		{"serial[18]", 18 * 8, 8, '1'},
		{"serial[19]", 19 * 8, 8, 0},
		{"control lat", 160, 32, float(38.8977)},
		{"control long", 192, 32, float(-77.0365)},
		{"control alt", 224, 16, 100},
		{"aircraft lat", 240, 32, float(38.9012)},
		{"aircraft long", 272, 32, float(-77.0401)},
		{"aircraft alt", 304, 16, 250},
		{"velocity x", 320, 32, float(1.5)},
		{"velocity y", 352, 32, float(-2.25)},
		{"velocity z", 384, 32, float(0.5)},
		{"year", 416, 16, 2024},
		{"month", 432, 8, 6},
		{"day", 440, 8, 15},
		{"millis", 448, 32, 43200000},
		{"status", 480, 8, 0xff},
	}
	for _, tc := range testCases {
		require.Equal(t, tc.value, b.Uint(tc.offset, tc.width), tc.name)
	}
	require.Equal(t, RecordBits, 480+StatusBits)
}

func TestSerializeKnownVector(t *testing.T) {
	// Independently computed bytes of the PHX record: fields are byte
	// aligned, floats IEEE 754 big endian.
	const expected = "5048583030303030303030303030303030303100" +
		"421b973fc29a12b00064" + "421b973fc29a12b00064" +
		"000000000000000000000000" + "07e8060f02932e00" + "00"
	b := Serialize(phxRecord())
	require.Equal(t, expected, hex.EncodeToString(b.Bytes()))

	data, err := hex.DecodeString(expected)
	require.NoError(t, err)
	buf, err := bits.FromBytes(RecordBits, data)
	require.NoError(t, err)
	r, err := Deserialize(buf)
	require.NoError(t, err)
	require.Equal(t, phxRecord(), r)
}

func TestDeserializeBadStatus(t *testing.T) {
	for _, status := range []uint64{0x01, 0x7f, 0xfe} {
		b := Serialize(phxRecord())
		head := b.Slice(0, RecordBits-StatusBits)
		bad := bits.New(RecordBits)
		require.NoError(t, bad.Append(head))
		require.NoError(t, bad.PushUint(status, StatusBits))
		_, err := Deserialize(bad)
		require.Error(t, err)
		var malformed *MalformedRecordError
		require.ErrorAs(t, err, &malformed)
		require.Contains(t, malformed.Reason, "status")
	}
}

func TestDeserializeWrongLength(t *testing.T) {
	_, err := Deserialize(bits.New(RecordBits))
	var malformed *MalformedRecordError
	require.ErrorAs(t, err, &malformed)
}

func TestSerialNumber(t *testing.T) {
	sn, err := NewSerialNumber("PHX0000000000000001")
	require.NoError(t, err)
	require.Equal(t, "PHX0000000000000001", sn.String())
	require.Equal(t, byte(0), sn[19])

	_, err = NewSerialNumber("PHX000000000000000001")
	require.ErrorIs(t, err, ErrSerialNumber)
	_, err = NewSerialNumber("PHX\x01")
	require.ErrorIs(t, err, ErrSerialNumber)
	_, err = NewSerialNumber("PHXé")
	require.ErrorIs(t, err, ErrSerialNumber)
	require.Panics(t, func() { MustSerialNumber("\x00") })
}

func TestTimestamp(t *testing.T) {
	tm := time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)
	ts := TimestampFrom(tm)
	require.Equal(t, Timestamp{Year: 2024, Month: 6, Day: 15, Millis: 43200000}, ts)
	require.True(t, tm.Equal(ts.Time()))

	local := time.Date(2024, time.June, 15, 1, 30, 0, 5e6, time.FixedZone("X", 2*3600))
	ts = TimestampFrom(local)
	require.Equal(t, Timestamp{Year: 2024, Month: 6, Day: 14, Millis: 84600005}, ts)
}

func TestValidate(t *testing.T) {
	r := phxRecord()
	require.NoError(t, r.Validate())

	mutations := map[string]func(*Record){
		"lat":    func(r *Record) { r.AircraftPos.Lat = 91 },
		"long":   func(r *Record) { r.ControlPos.Long = -181 },
		"nan":    func(r *Record) { r.AircraftPos.Lat = float32(math.NaN()) },
		"vel":    func(r *Record) { r.Velocity.Z = float32(math.Inf(-1)) },
		"month":  func(r *Record) { r.Timestamp.Month = 13 },
		"day":    func(r *Record) { r.Timestamp.Day = 0 },
		"millis": func(r *Record) { r.Timestamp.Millis = MillisPerDay },
		"status": func(r *Record) { r.Status = 3 },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			r := phxRecord()
			mutate(&r)
			require.Error(t, r.Validate())
		})
	}
}

func TestStatus(t *testing.T) {
	require.True(t, StatusOK.Valid())
	require.True(t, StatusEmergency.Valid())
	require.False(t, Status(1).Valid())
	require.Equal(t, "ok", StatusOK.String())
	require.Equal(t, "emergency", StatusEmergency.String())
	require.Equal(t, "status(0x01)", Status(1).String())
}

func TestSubsystems(t *testing.T) {
	var s Subsystems
	require.Equal(t, StatusOK, s.Status())
	for _, sub := range AllSubsystems {
		require.Equal(t, StatusOK, s.SubsystemStatus(sub))
	}
	s.SetStatus(Power, StatusEmergency)
	require.Equal(t, StatusEmergency, s.SubsystemStatus(Power))
	require.Equal(t, StatusEmergency, s.Status())
	s.SetStatus(Power, StatusOK)
	require.Equal(t, StatusOK, s.Status())
	require.Equal(t, "remote-id", RemoteID.String())
	require.Equal(t, "subsystem(9)", Subsystem(9).String())
}
