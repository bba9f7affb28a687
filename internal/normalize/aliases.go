package normalize

// aliasEntry maps a lower-case substring to the canonical source name
type aliasEntry struct {
	match     string
	canonical string
}

// Bookmaker alias table. Scanned in order, first match wins and replaces the
// whole string, so longer brand forms must come before shorter substrings of
// the same brand (betfair exchange before betfair, betmgm before mgm).
var sourceAliases = []aliasEntry{
	{"bet365", "Bet365"},
	{"betfair exchange", "Betfair Exchange"},
	{"betfair", "Betfair"},
	{"paddy power", "Paddy Power"},
	{"paddypower", "Paddy Power"},
	{"william hill", "William Hill"},
	{"williamhill", "William Hill"},
	{"draftkings", "DraftKings"},
	{"draft kings", "DraftKings"},
	{"fanduel", "FanDuel"},
	{"fan duel", "FanDuel"},
	{"betmgm", "BetMGM"},
	{"mgm", "BetMGM"},
	{"caesars", "Caesars"},
	{"pinnacle", "Pinnacle"},
	{"pinny", "Pinnacle"},
	{"unibet", "Unibet"},
	{"ladbrokes", "Ladbrokes"},
	{"betway", "Betway"},
	{"bovada", "Bovada"},
	{"pointsbet", "PointsBet"},
	{"points bet", "PointsBet"},
	{"888sport", "888sport"},
	{"888 sport", "888sport"},
	{"betrivers", "BetRivers"},
	{"bet rivers", "BetRivers"},
	{"bwin", "Bwin"},
	{"betsson", "Betsson"},
}
