package domain

// Estimator selects the standard deviation estimator used for the
// consensus statistic.
type Estimator string

const (
	// EstimatorSample divides by n-1 (unbiased). It is the default.
	EstimatorSample Estimator = "sample"

	// EstimatorPopulation divides by n.
	EstimatorPopulation Estimator = "population"
)

// ConsensusLevel is the qualitative label attached to a Consensus Index.
type ConsensusLevel string

// Consensus levels in descending order of agreement.
const (
	LevelHigh     ConsensusLevel = "High consensus"
	LevelModerate ConsensusLevel = "Moderate"
	LevelLow      ConsensusLevel = "Low"
	LevelDissent  ConsensusLevel = "Dissent"
)

// DispersionBand classifies the observed standard deviation of a criterion
// on its own, without reference to the theoretical maximum.
type DispersionBand string

// Dispersion bands, from tightest to widest.
const (
	DispersionStrongAgreement   DispersionBand = "Strong agreement"
	DispersionModerateAgreement DispersionBand = "Moderate agreement"
	DispersionStrongDivergence  DispersionBand = "Strong divergence"
)

// Upper bounds (inclusive) of the dispersion bands.
const (
	StrongAgreementMaxStdDev   = 0.05
	ModerateAgreementMaxStdDev = 0.15
)

// BandForStdDev returns the dispersion band of an observed standard deviation.
func BandForStdDev(std float64) DispersionBand {
	switch {
	case std <= StrongAgreementMaxStdDev:
		return DispersionStrongAgreement
	case std <= ModerateAgreementMaxStdDev:
		return DispersionModerateAgreement
	default:
		return DispersionStrongDivergence
	}
}

// ConsensusEntry is the consensus record for one criterion.
type ConsensusEntry struct {
	Criterion Criterion `json:"criterion" yaml:"criterion"`

	// Mean is the arithmetic mean of the normalized weights for the criterion.
	Mean float64 `json:"mean" yaml:"mean"`

	// StdDev is the observed standard deviation across decision-makers.
	StdDev float64 `json:"std_dev" yaml:"std_dev"`

	// MaxStdDev is sqrt(Mean*(1-Mean)), the largest standard deviation a
	// sample bounded in [0,1] with that mean can have.
	MaxStdDev float64 `json:"max_std_dev" yaml:"max_std_dev"`

	// Index is the Consensus Index in [0,1]; 1 is perfect agreement.
	Index float64 `json:"index" yaml:"index"`

	Level      ConsensusLevel `json:"level" yaml:"level"`
	Dispersion DispersionBand `json:"dispersion" yaml:"dispersion"`
}

// ConsensusReport holds one entry per criterion, in criterion order.
type ConsensusReport struct {
	Estimator Estimator        `json:"estimator" yaml:"estimator"`
	Entries   []ConsensusEntry `json:"entries" yaml:"entries"`
}

// Lookup returns the entry for the named criterion.
func (r ConsensusReport) Lookup(name string) (ConsensusEntry, bool) {
	for _, e := range r.Entries {
		if e.Criterion.Name == name {
			return e, true
		}
	}
	return ConsensusEntry{}, false
}
