package libretro

// JoypadButton is a RETRO_DEVICE_ID_JOYPAD_* id. The layout follows the
// SNES pad, A is the right face button.
type JoypadButton uint

const (
	JoypadB JoypadButton = iota
	JoypadY
	JoypadSelect
	JoypadStart
	JoypadUp
	JoypadDown
	JoypadLeft
	JoypadRight
	JoypadA
	JoypadX
	JoypadL
	JoypadR
	JoypadL2
	JoypadR2
	JoypadL3
	JoypadR3
)

// JoypadButtons is the number of joypad ids.
const JoypadButtons = 16

var joypadNames = [JoypadButtons]string{
	"B", "Y", "Select", "Start", "Up", "Down", "Left", "Right",
	"A", "X", "L", "R", "L2", "R2", "L3", "R3",
}

func (b JoypadButton) String() string {
	if b < JoypadButtons {
		return joypadNames[b]
	}
	return "?"
}

// Key is a RETROK_* keyboard code. Only the keys some core reads are
// listed.
type Key uint

const (
	KeyBackspace Key = 8
	KeyTab       Key = 9
	KeyReturn    Key = 13
	KeyPause     Key = 19
	KeyEscape    Key = 27
	KeySpace     Key = 32
	KeyComma     Key = 44
	KeyMinus     Key = 45
	KeyPeriod    Key = 46
	KeySlash     Key = 47
	Key0         Key = 48
	Key1         Key = 49
	Key2         Key = 50
	Key3         Key = 51
	Key4         Key = 52
	Key5         Key = 53
	Key6         Key = 54
	Key7         Key = 55
	Key8         Key = 56
	Key9         Key = 57
	KeyA         Key = 97
	KeyZ         Key = 122
	KeyDelete    Key = 127
	KeyUp        Key = 273
	KeyDown      Key = 274
	KeyRight     Key = 275
	KeyLeft      Key = 276
	KeyInsert    Key = 277
	KeyHome      Key = 278
	KeyEnd       Key = 279
	KeyPageUp    Key = 280
	KeyPageDown  Key = 281
	KeyF1        Key = 282
	KeyF12       Key = 293
	KeyRShift    Key = 303
	KeyLShift    Key = 304
	KeyRCtrl     Key = 305
	KeyLCtrl     Key = 306
	KeyRAlt      Key = 307
	KeyLAlt      Key = 308
)

// Letter returns the key code of a lower case letter.
func Letter(r rune) Key { return KeyA + Key(r-'a') }
