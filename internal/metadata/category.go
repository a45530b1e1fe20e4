package metadata

import "strings"

// FallbackCategory is returned when no pattern matches a package id.
const FallbackCategory = "Other"

// categoryPatterns maps package-id substrings to a best-effort category.
// Checked in order; first match wins.
var categoryPatterns = []struct {
	substring string
	category  string
}{
	{"game", "Games"},
	{"browser", "Internet"},
	{"mail", "Internet"},
	{"messenger", "Internet"},
	{"messaging", "Internet"},
	{"chat", "Internet"},
	{"music", "Multimedia"},
	{"player", "Multimedia"},
	{"video", "Multimedia"},
	{"camera", "Multimedia"},
	{"photo", "Graphics"},
	{"gallery", "Graphics"},
	{"map", "Navigation"},
	{"navigation", "Navigation"},
	{"gps", "Navigation"},
	{"weather", "Internet"},
	{"calendar", "Time"},
	{"clock", "Time"},
	{"alarm", "Time"},
	{"note", "Writing"},
	{"editor", "Writing"},
	{"reader", "Reading"},
	{"book", "Reading"},
	{"keyboard", "System"},
	{"launcher", "System"},
	{"backup", "System"},
	{"file", "System"},
	{"terminal", "Development"},
	{"dev", "Development"},
	{"git", "Development"},
	{"calc", "Science & Education"},
	{"learn", "Science & Education"},
	{"dict", "Science & Education"},
	{"health", "Sports & Health"},
	{"fitness", "Sports & Health"},
	{"sport", "Sports & Health"},
	{"money", "Money"},
	{"wallet", "Money"},
	{"finance", "Money"},
	{"phone", "Phone & SMS"},
	{"sms", "Phone & SMS"},
	{"call", "Phone & SMS"},
	{"vpn", "Security"},
	{"password", "Security"},
	{"crypt", "Security"},
	{"auth", "Security"},
}

// GuessCategory classifies a package by id substrings when no published
// metadata is available.
func GuessCategory(packageID string) string {
	id := strings.ToLower(packageID)
	for _, p := range categoryPatterns {
		if strings.Contains(id, p.substring) {
			return p.category
		}
	}
	return FallbackCategory
}
