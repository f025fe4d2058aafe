package bankcsv

// amountMode determines how amounts are extracted from a row.
type amountMode int

const (
	// amountSingle is one signed column, e.g. "Montante" with "-10,00".
	amountSingle amountMode = iota
	// amountSplit is separate debit and credit columns.
	amountSplit
)

type numberStyle int

const (
	// numbersEuropean uses "." for thousands and "," for decimals: "1.234,56".
	numbersEuropean numberStyle = iota
	// numbersPlain uses "," for thousands and "." for decimals: "1,234.56".
	numbersPlain
)

// Profile describes the column layout of a statement export. Column names match case-insensitively.
type Profile struct {
	Name        string
	DateCol     string
	DescCol     string
	RefCol      string // optional
	AmountMode  amountMode
	AmountCol   string // used when AmountMode == amountSingle
	DebitCol    string // used when AmountMode == amountSplit
	CreditCol   string // used when AmountMode == amountSplit
	DateLayouts []string
	Numbers     numberStyle
}

func (p Profile) requiredCols() []string {
	cols := []string{p.DateCol, p.DescCol}

	switch p.AmountMode {
	case amountSingle:
		cols = append(cols, p.AmountCol)
	case amountSplit:
		cols = append(cols, p.DebitCol, p.CreditCol)
	}

	return cols
}

// Profile names accepted by Parse.
const (
	ProfileAuto       = ""
	ProfileGeneric    = "generic"
	ProfileCGDConta   = "cgd-conta"
	ProfileCGDExtrato = "cgd-extrato"
	ProfileCGDSplit   = "cgd-split"
)

// profiles are tried in order during auto-detection; more specific layouts come first.
var profiles = []Profile{
	{
		Name:        ProfileCGDExtrato,
		DateCol:     "Data mov.",
		DescCol:     "Descrição",
		RefCol:      "Referência",
		AmountMode:  amountSingle,
		AmountCol:   "Movimento",
		DateLayouts: []string{"02-01-2006"},
		Numbers:     numbersEuropean,
	},
	{
		Name:        ProfileCGDConta,
		DateCol:     "Data mov.",
		DescCol:     "Descrição",
		RefCol:      "Referência",
		AmountMode:  amountSingle,
		AmountCol:   "Montante",
		DateLayouts: []string{"02-01-2006"},
		Numbers:     numbersEuropean,
	},
	{
		Name:        ProfileCGDSplit,
		DateCol:     "Data",
		DescCol:     "Descrição",
		AmountMode:  amountSplit,
		DebitCol:    "Débito",
		CreditCol:   "Crédito",
		DateLayouts: []string{"02-01-2006"},
		Numbers:     numbersEuropean,
	},
	{
		Name:        ProfileGeneric,
		DateCol:     "Date",
		DescCol:     "Description",
		RefCol:      "Reference",
		AmountMode:  amountSingle,
		AmountCol:   "Amount",
		DateLayouts: []string{"2006-01-02", "02/01/2006"},
		Numbers:     numbersPlain,
	},
}

func lookupProfile(name string) (*Profile, bool) {
	for i := range profiles {
		if profiles[i].Name == name {
			return &profiles[i], true
		}
	}

	return nil, false
}
