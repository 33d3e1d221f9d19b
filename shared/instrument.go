package shared

// Instrument represents a tracked market instrument.
type Instrument struct {
	// Symbol is the instrument's ticker symbol.
	Symbol string
	// Name is the instrument's display name.
	Name string
}

// defaultUniverse is the default instrument universe for structure analysis,
// a cross-sector set of large caps.
var defaultUniverse = []Instrument{
	{"TOT", "Total"},
	{"XOM", "Exxon"},
	{"CVX", "Chevron"},
	{"COP", "ConocoPhillips"},
	{"VLO", "Valero Energy"},
	{"MSFT", "Microsoft"},
	{"IBM", "IBM"},
	{"TWX", "Time Warner"},
	{"CMCSA", "Comcast"},
	{"CVC", "Cablevision"},
	{"YHOO", "Yahoo"},
	{"DELL", "Dell"},
	{"HPQ", "HP"},
	{"AMZN", "Amazon"},
	{"TM", "Toyota"},
	{"CAJ", "Canon"},
	{"SNE", "Sony"},
	{"F", "Ford"},
	{"HMC", "Honda"},
	{"NAV", "Navistar"},
	{"NOC", "Northrop Grumman"},
	{"BA", "Boeing"},
	{"KO", "Coca Cola"},
	{"MMM", "3M"},
	{"MCD", "McDonald's"},
	{"PEP", "Pepsi"},
	{"K", "Kellogg"},
	{"UN", "Unilever"},
	{"MAR", "Marriott"},
	{"PG", "Procter Gamble"},
	{"CL", "Colgate-Palmolive"},
	{"GE", "General Electric"},
	{"WFC", "Wells Fargo"},
	{"JPM", "JPMorgan Chase"},
	{"AIG", "AIG"},
	{"AXP", "American Express"},
	{"BAC", "Bank of America"},
	{"GS", "Goldman Sachs"},
	{"AAPL", "Apple"},
	{"SAP", "SAP"},
	{"CSCO", "Cisco"},
	{"TXN", "Texas Instruments"},
	{"XRX", "Xerox"},
	{"WMT", "Wal-Mart"},
	{"HD", "Home Depot"},
	{"GSK", "GlaxoSmithKline"},
	{"PFE", "Pfizer"},
	{"SNY", "Sanofi-Aventis"},
	{"NVS", "Novartis"},
	{"KMB", "Kimberly-Clark"},
	{"R", "Ryder"},
	{"GD", "General Dynamics"},
	{"RTN", "Raytheon"},
	{"CVS", "CVS"},
	{"CAT", "Caterpillar"},
	{"DD", "DuPont de Nemours"},
}

// DefaultUniverse returns a copy of the default instrument universe.
func DefaultUniverse() []Instrument {
	universe := make([]Instrument, len(defaultUniverse))
	copy(universe, defaultUniverse)
	return universe
}

// NewUniverse creates an instrument universe from the provided ticker symbols,
// resolving display names from the default universe where known. Unknown
// symbols use the symbol itself as the display name.
func NewUniverse(symbols []string) []Instrument {
	names := make(map[string]string, len(defaultUniverse))
	for idx := range defaultUniverse {
		names[defaultUniverse[idx].Symbol] = defaultUniverse[idx].Name
	}

	universe := make([]Instrument, 0, len(symbols))
	for idx := range symbols {
		symbol := symbols[idx]

		name, ok := names[symbol]
		if !ok {
			name = symbol
		}

		universe = append(universe, Instrument{Symbol: symbol, Name: name})
	}

	return universe
}
