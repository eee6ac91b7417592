package forensics

// Score increments added per suspicious check.
const (
	incrementELA                  = 0.3
	incrementNoise                = 0.2
	incrementCompression          = 0.2
	incrementDotPattern           = 0.2
	incrementResolution           = 0.2
	incrementSignatureQuality     = 0.3
	incrementSignatureConsistency = 0.2
	incrementGeneralQuality       = 0.2
	incrementSecurityElements     = 0.3
	incrementDates                = 0.2
	incrementAmounts              = 0.2
	incrementNames                = 0.2
)

// Alerts appended per suspicious check.
const (
	AlertELA                  = "Se detectaron posibles manipulaciones en la imagen"
	AlertNoise                = "Patrones de ruido inconsistentes detectados"
	AlertCompression          = "Patrones de compresión inconsistentes"
	AlertDotPattern           = "Patrones de impresión inconsistentes detectados"
	AlertResolution           = "Resolución de impresión sospechosa"
	AlertSignatureQuality     = "Calidad de firmas sospechosa"
	AlertSignatureConsistency = "Inconsistencia en las firmas detectadas"
	AlertGeneralQuality       = "Calidad general del documento sospechosa"
	AlertSecurityElements     = "Faltan elementos de seguridad esperados"
	AlertDuplicateDates       = "Se encontraron fechas duplicadas"
	AlertAmountDiscrepancy    = "Hay una gran discrepancia entre los montos"
	AlertDuplicateNames       = "Se encontraron nombres duplicados con diferentes formatos"
)

// Prefixes for category-level failures.
const (
	errPrefixManipulation = "Error en análisis de manipulación: "
	errPrefixPatterns     = "Error en análisis de patrones: "
	errPrefixSignatures   = "Error en verificación de firmas: "
	errPrefixQuality      = "Error en análisis de calidad: "
)

// Thresholds holds every tunable constant of the detectors.
type Thresholds struct {
	ELAQuality  int
	ELAMeanDiff float64
	ELAStdDiff  float64
	NoiseStd    float64
	DCTStd      float64

	AdaptiveBlockSize int
	AdaptiveC         float64

	// DotAreaSpread flags dot patterns whose area std exceeds spread*mean.
	DotAreaSpread   float64
	PageWidthInches float64
	MinDPI          float64
	MaxDPI          float64

	SignatureMinWidth          int
	SignatureMinHeight         int
	SignatureQualitySpread     float64
	SignatureConsistencySpread float64

	MinBlurVariance     float64
	MinContrast         float64
	SecurityMinArea     float64
	SecurityMaxArea     float64
	MinSecurityElements int

	AmountDiscrepancyRatio float64
}

// DefaultThresholds returns the calibrated detector constants.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ELAQuality:                 90,
		ELAMeanDiff:                10,
		ELAStdDiff:                 5,
		NoiseStd:                   20,
		DCTStd:                     100,
		AdaptiveBlockSize:          11,
		AdaptiveC:                  2,
		DotAreaSpread:              0.5,
		PageWidthInches:            8.5,
		MinDPI:                     200,
		MaxDPI:                     600,
		SignatureMinWidth:          50,
		SignatureMinHeight:         20,
		SignatureQualitySpread:     0.5,
		SignatureConsistencySpread: 0.3,
		MinBlurVariance:            100,
		MinContrast:                50,
		SecurityMinArea:            100,
		SecurityMaxArea:            1000,
		MinSecurityElements:        3,
		AmountDiscrepancyRatio:     10,
	}
}

// Option configures a detector.
type Option func(*settings)

type settings struct {
	th Thresholds
}

// WithThresholds replaces the detector constants.
func WithThresholds(th Thresholds) Option {
	return func(s *settings) {
		s.th = th
	}
}

// WithAmountDiscrepancyRatio overrides the max/min amount ratio.
func WithAmountDiscrepancyRatio(ratio float64) Option {
	return func(s *settings) {
		if ratio > 1 {
			s.th.AmountDiscrepancyRatio = ratio
		}
	}
}

// WithMinBlurVariance overrides the Laplacian variance below which a scan is blurry.
func WithMinBlurVariance(v float64) Option {
	return func(s *settings) {
		if v >= 0 {
			s.th.MinBlurVariance = v
		}
	}
}

func newSettings(opts []Option) settings {
	s := settings{th: DefaultThresholds()}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}
