package lookup

// Hand-curated recode tables. These change with nearly every
// submission round, so they are kept as plain data here rather than
// folded into code paths; diffs on this file are the review trail.

// ernVariants maps spellings seen in submitter manifests to canonical
// reference-network identifiers.
var ernVariants = map[string]string{
	"ithaca":       "ern_ithaca",
	"ern-ithaca":   "ern_ithaca",
	"ern ithaca":   "ern_ithaca",
	"genturis":     "ern_genturis",
	"ern-genturis": "ern_genturis",
	"rnd":          "ern_rnd",
	"ern-rnd":      "ern_rnd",
	"euro-nmd":     "ern_euro_nmd",
	"euronmd":      "ern_euro_nmd",
	"nmd":          "ern_euro_nmd",
	"rita":         "ern_rita",
	"ern-rita":     "ern_rita",
	"epicare":      "ern_epicare",
	"ern-epicare":  "ern_epicare",
	"guard":        "ern_guard",
	"ern-guard":    "ern_guard",
}

// tissueVariants maps free-text tissue spellings to controlled tissue
// types.
var tissueVariants = map[string]string{
	"blood":            "Whole Blood",
	"whole blood":      "Whole Blood",
	"peripheral blood": "Whole Blood",
	"fibroblasts":      "Cells - Cultured fibroblasts",
	"fibroblast":       "Cells - Cultured fibroblasts",
	"muscle":           "Muscle - Skeletal",
	"skeletal muscle":  "Muscle - Skeletal",
	"saliva":           "Saliva",
	"skin":             "Skin",
	"urine":            "Urine",
	"cell pellet":      "Cells",
	"ffpe":             "Tumor (FFPE)",
}

// materialVariants maps submitted material-type spellings to controlled
// material types. FFPE is handled before this table is consulted; see
// the shipment ingestor.
var materialVariants = map[string]string{
	"dna":           "DNA",
	"gdna":          "DNA",
	"genomic dna":   "DNA",
	"rna":           "RNA",
	"total rna":     "RNA",
	"ffpe":          "TISSUE (FFPE)",
	"tissue (ffpe)": "TISSUE (FFPE)",
	"cell pellet":   "CELL PELLET",
}

// pathologicalVariants maps pathological-state spellings.
var pathologicalVariants = map[string]string{
	"tumor":           "Tumor",
	"tumour":          "Tumor",
	"normal":          "Normal",
	"healthy":         "Normal",
	"affected tissue": "Affected tissue",
}

// seqTypeVariants maps analysis/sequencing-type spellings to the
// controlled seq-type vocabulary.
var seqTypeVariants = map[string]string{
	"wgs":         "WGS",
	"sr-wgs":      "WGS",
	"srwgs":       "WGS",
	"lr-wgs":      "LR-WGS",
	"lrwgs":       "LR-WGS",
	"wxs":         "WXS",
	"wes":         "WXS",
	"exome":       "WXS",
	"rna-seq":     "RNA-seq",
	"rnaseq":      "RNA-seq",
	"totalrnaseq": "RNA-seq",
	"methylation": "Methylation",
	"epigenome":   "Methylation",
}

// fileFormatVariants maps file-extension spellings to the controlled
// file-format vocabulary.
var fileFormatVariants = map[string]string{
	"fastq":    "FASTQ",
	"fq":       "FASTQ",
	"fastq.gz": "FASTQ",
	"bam":      "BAM",
	"cram":     "CRAM",
	"vcf":      "VCF",
	"vcf.gz":   "VCF",
	"gvcf":     "gVCF",
	"ped":      "PED",
	"json":     "JSON",
	"bed":      "BED",
}

// sexVariants maps claimed-sex spellings to the internal sex codes.
var sexVariants = map[string]string{
	"f":            "F",
	"female":       "F",
	"m":            "M",
	"male":         "M",
	"u":            "U",
	"unknown":      "U",
	"undetermined": "UD",
}

// DiseaseRecodes maps disease codes (after prefix normalization) that
// were re-assigned or retired upstream. An empty target drops the code.
var DiseaseRecodes = map[string]string{
	// retired, merged into 609200
	"MIM_159000": "MIM_609200",
	"MIM_159001": "MIM_609200",
	// deprecated ORDO entries with no successor
	"ORDO_856": "",
	// moved between catalogs
	"MIM_607086": "MIM_618280",
}
