package classifier

// Category is the classification outcome for one file.
type Category string

const (
	Clean      Category = "CLEAN"
	Virus      Category = "VIRUS"
	Malware    Category = "MALWARE"
	Trojan     Category = "TROJAN"
	Ransomware Category = "RANSOMWARE"
	Keylogger  Category = "KEYLOGGER"
	Rootkit    Category = "ROOTKIT"
	Error      Category = "ERROR"
	Warning    Category = "WARNING"
	Skipped    Category = "SKIPPED"
)

// IsThreat reports whether c names a threat family.
func (c Category) IsThreat() bool {
	switch c {
	case Virus, Malware, Trojan, Ransomware, Keylogger, Rootkit:
		return true
	}
	return false
}

type Kind int

const (
	KindClean Kind = iota
	KindThreat
	KindError
)

// Verdict is the tagged result of classification: Clean, Threat(category,
// details) or Error(reason).
type Verdict struct {
	Kind     Kind
	Category Category
	Details  string
}

func CleanVerdict() Verdict {
	return Verdict{Kind: KindClean, Category: Clean, Details: "no threats detected"}
}

func ThreatVerdict(c Category, details string) Verdict {
	return Verdict{Kind: KindThreat, Category: c, Details: details}
}

func ErrorVerdict(reason string) Verdict {
	return Verdict{Kind: KindError, Category: Error, Details: reason}
}
