package slug

// team maps an odds-feed display name to the short code Polymarket uses in
// its sports slugs.
type team struct {
	name string
	code string
}

var nbaTeams = []team{
	{"Atlanta Hawks", "atl"},
	{"Boston Celtics", "bos"},
	{"Brooklyn Nets", "bkn"},
	{"Charlotte Hornets", "cha"},
	{"Chicago Bulls", "chi"},
	{"Cleveland Cavaliers", "cle"},
	{"Dallas Mavericks", "dal"},
	{"Denver Nuggets", "den"},
	{"Detroit Pistons", "det"},
	{"Golden State Warriors", "gsw"},
	{"Houston Rockets", "hou"},
	{"Indiana Pacers", "ind"},
	{"Los Angeles Clippers", "lac"},
	{"Los Angeles Lakers", "lal"},
	{"Memphis Grizzlies", "mem"},
	{"Miami Heat", "mia"},
	{"Milwaukee Bucks", "mil"},
	{"Minnesota Timberwolves", "min"},
	{"New Orleans Pelicans", "nop"},
	{"New York Knicks", "nyk"},
	{"Oklahoma City Thunder", "okc"},
	{"Orlando Magic", "orl"},
	{"Philadelphia 76ers", "phi"},
	{"Phoenix Suns", "phx"},
	{"Portland Trail Blazers", "por"},
	{"Sacramento Kings", "sac"},
	{"San Antonio Spurs", "sas"},
	{"Toronto Raptors", "tor"},
	{"Utah Jazz", "uta"},
	{"Washington Wizards", "was"},
}

var nhlTeams = []team{
	{"Anaheim Ducks", "ana"},
	{"Boston Bruins", "bos"},
	{"Buffalo Sabres", "buf"},
	{"Calgary Flames", "cgy"},
	{"Carolina Hurricanes", "car"},
	{"Chicago Blackhawks", "chi"},
	{"Colorado Avalanche", "col"},
	{"Columbus Blue Jackets", "cbj"},
	{"Dallas Stars", "dal"},
	{"Detroit Red Wings", "det"},
	{"Edmonton Oilers", "edm"},
	{"Florida Panthers", "fla"},
	{"Los Angeles Kings", "lak"},
	{"Minnesota Wild", "min"},
	{"Montréal Canadiens", "mtl"},
	{"Montreal Canadiens", "mtl"},
	{"Nashville Predators", "nsh"},
	{"New Jersey Devils", "njd"},
	{"New York Islanders", "nyi"},
	{"New York Rangers", "nyr"},
	{"Ottawa Senators", "ott"},
	{"Philadelphia Flyers", "phi"},
	{"Pittsburgh Penguins", "pit"},
	{"San Jose Sharks", "sjs"},
	{"Seattle Kraken", "sea"},
	{"St Louis Blues", "stl"},
	{"St. Louis Blues", "stl"},
	{"Tampa Bay Lightning", "tbl"},
	{"Toronto Maple Leafs", "tor"},
	{"Utah Hockey Club", "uta"},
	{"Utah Mammoth", "uta"},
	{"Vancouver Canucks", "van"},
	{"Vegas Golden Knights", "vgk"},
	{"Washington Capitals", "wsh"},
	{"Winnipeg Jets", "wpg"},
}

var mlbTeams = []team{
	{"Arizona Diamondbacks", "ari"},
	{"Atlanta Braves", "atl"},
	{"Baltimore Orioles", "bal"},
	{"Boston Red Sox", "bos"},
	{"Chicago Cubs", "chc"},
	{"Chicago White Sox", "cws"},
	{"Cincinnati Reds", "cin"},
	{"Cleveland Guardians", "cle"},
	{"Colorado Rockies", "col"},
	{"Detroit Tigers", "det"},
	{"Houston Astros", "hou"},
	{"Kansas City Royals", "kc"},
	{"Los Angeles Angels", "laa"},
	{"Los Angeles Dodgers", "lad"},
	{"Miami Marlins", "mia"},
	{"Milwaukee Brewers", "mil"},
	{"Minnesota Twins", "min"},
	{"New York Mets", "nym"},
	{"New York Yankees", "nyy"},
	{"Oakland Athletics", "oak"},
	{"Athletics", "oak"},
	{"Philadelphia Phillies", "phi"},
	{"Pittsburgh Pirates", "pit"},
	{"San Diego Padres", "sd"},
	{"San Francisco Giants", "sf"},
	{"Seattle Mariners", "sea"},
	{"St. Louis Cardinals", "stl"},
	{"Tampa Bay Rays", "tb"},
	{"Texas Rangers", "tex"},
	{"Toronto Blue Jays", "tor"},
	{"Washington Nationals", "wsh"},
}

// leagues maps odds-feed sport keys to the slug prefix and its team table.
var leagues = []struct {
	sportKey string
	prefix   string
	teams    []team
}{
	{"basketball_nba", "nba", nbaTeams},
	{"basketball_nba_summer_league", "nba", nbaTeams},
	{"icehockey_nhl", "nhl", nhlTeams},
	{"baseball_mlb", "mlb", mlbTeams},
}

var (
	prefixBySport = map[string]string{}
	codesByPrefix = map[string]map[string]string{}
)

func init() {
	for _, l := range leagues {
		prefixBySport[l.sportKey] = l.prefix
		if _, ok := codesByPrefix[l.prefix]; ok {
			continue
		}
		codes := make(map[string]string, len(l.teams))
		for _, t := range l.teams {
			codes[t.name] = t.code
		}
		codesByPrefix[l.prefix] = codes
	}
}

// SupportedSports returns the odds-feed sport keys that can produce slugs.
func SupportedSports() []string {
	out := make([]string, 0, len(leagues))
	for _, l := range leagues {
		out = append(out, l.sportKey)
	}
	return out
}

// Prefix returns the slug prefix for an odds-feed sport key.
func Prefix(sportKey string) (string, bool) {
	p, ok := prefixBySport[sportKey]
	return p, ok
}

// TeamCode returns the slug code for a team display name within a league
// prefix. The lookup is exact; names that differ in case or punctuation
// from the table do not resolve.
func TeamCode(prefix, name string) (string, bool) {
	codes, ok := codesByPrefix[prefix]
	if !ok {
		return "", false
	}
	c, ok := codes[name]
	return c, ok
}
