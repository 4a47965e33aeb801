// Package limits держит фиксированные лимиты чата и отвечает на вопросы вида
// «не превысит ли операция лимит». Значение Limits неизменяемо и передаётся
// в движок при конструировании — никакого глобального изменяемого состояния.
package limits

import "unicode/utf16"

type Limits struct {
	MaxMessageTextSize int // UTF-16 code units
	MaxUserCountInChat int
	MaxUserChats       int
	// MaxSocketTimeout потребляется транспортным слоем (дедлайн записи, мс),
	// ядро движка его не читает.
	MaxSocketTimeout int
}

// Default returns the fixed limit table.
func Default() Limits {
	return Limits{
		MaxMessageTextSize: 4000,
		MaxUserCountInChat: 10000,
		MaxUserChats:       600,
		MaxSocketTimeout:   10000,
	}
}

// TextSize measures s in UTF-16 code units, the unit the message size limit
// is defined against (a surrogate pair counts as 2).
func TextSize(s string) int {
	return len(utf16.Encode([]rune(s)))
}

// CanAddMember reports whether a room with memberCount members may accept one more.
func (l Limits) CanAddMember(memberCount int) bool {
	return memberCount < l.MaxUserCountInChat
}

// CanJoinAnotherRoom reports whether a user already in roomCount rooms may join one more.
func (l Limits) CanJoinAnotherRoom(roomCount int) bool {
	return roomCount < l.MaxUserChats
}

// CanAppendText reports whether text fits the message size limit.
func (l Limits) CanAppendText(text string) bool {
	return TextSize(text) <= l.MaxMessageTextSize
}
