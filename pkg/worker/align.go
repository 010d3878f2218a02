package worker

import "digital.vasic.nmt/pkg/models"

// alignments gives the byte alignment the sandbox allocates each file
// kind's buffer to.
var alignments = map[models.FileKind]int{
	models.FileModel:        256,
	models.FileLex:          64,
	models.FileVocab:        64,
	models.FileQualityModel: 64,
	models.FileSrcVocab:     64,
	models.FileTrgVocab:     64,
}

// alignedBuffer is a payload copied into a buffer padded to its file
// kind's required alignment, standing in for the sandbox allocation the
// real inference runtime performs.
type alignedBuffer struct {
	kind  models.FileKind
	bytes []byte
}

// allocateAligned copies each bundle entry into an alignedBuffer sized
// up to its required alignment.
func allocateAligned(bundle models.ModelBundle) map[models.FileKind]alignedBuffer {
	out := make(map[models.FileKind]alignedBuffer, len(bundle))
	for kind, file := range bundle {
		align := alignments[kind]
		if align == 0 {
			align = 64
		}
		out[kind] = alignedBuffer{kind: kind, bytes: padTo(file.Data, align)}
	}
	return out
}

func padTo(data []byte, align int) []byte {
	size := len(data)
	if rem := size % align; rem != 0 {
		size += align - rem
	}
	padded := make([]byte, size)
	copy(padded, data)
	return padded
}

// gemmPrecision selects the GEMM precision mode by model file name
// suffix.
func gemmPrecision(modelFileName string) string {
	const intgemm8Suffix = "intgemm8.bin"
	if len(modelFileName) >= len(intgemm8Suffix) && modelFileName[len(modelFileName)-len(intgemm8Suffix):] == intgemm8Suffix {
		return "int8shiftAll"
	}
	return "int8shiftAlphaAll"
}

// vocabularyVector names the one or two files used as the vocabulary:
// a single shared vocab file, or separate source/target files. Callers
// that need to know whether those files actually exist in a bundle
// should use hasVocabularyFiles; this only names the slot shape.
func vocabularyVector(bundle models.ModelBundle) []models.FileKind {
	if _, ok := bundle[models.FileVocab]; ok {
		return []models.FileKind{models.FileVocab}
	}
	return []models.FileKind{models.FileSrcVocab, models.FileTrgVocab}
}

// hasVocabularyFiles reports whether bundle carries either a shared
// vocab file or both source and target vocab files.
func hasVocabularyFiles(bundle models.ModelBundle) bool {
	if _, ok := bundle[models.FileVocab]; ok {
		return true
	}
	_, hasSrc := bundle[models.FileSrcVocab]
	_, hasTrg := bundle[models.FileTrgVocab]
	return hasSrc && hasTrg
}

// InferenceConfig is the fixed knob set emitted at init time. Every
// field's default is part of the worker protocol contract and must not
// be changed casually.
type InferenceConfig struct {
	BeamSize         int     `json:"beam-size"`
	Normalize        float64 `json:"normalize"`
	WordPenalty      float64 `json:"word-penalty"`
	MaxLengthBreak    int     `json:"max-length-break"`
	MiniBatchWords   int     `json:"mini-batch-words"`
	Workspace        int     `json:"workspace"`
	MaxLengthFactor  float64 `json:"max-length-factor"`
	SkipCost         bool    `json:"skip-cost"`
	CPUThreads       int     `json:"cpu-threads"`
	Quiet            bool    `json:"quiet"`
	QuietTranslation bool    `json:"quiet-translation"`
	Alignment        string  `json:"alignment"`
}

// defaultInferenceConfig builds the fixed-knob configuration, with
// skip-cost derived from whether a quality model was supplied.
func defaultInferenceConfig(hasQualityModel bool) InferenceConfig {
	return InferenceConfig{
		BeamSize:        1,
		Normalize:       1.0,
		WordPenalty:     0,
		MaxLengthBreak:  128,
		MiniBatchWords:  1024,
		Workspace:       128,
		MaxLengthFactor: 2.0,
		SkipCost:        !hasQualityModel,
		CPUThreads:      0,
		Quiet:           true,
		QuietTranslation: true,
		Alignment:       "soft",
	}
}
