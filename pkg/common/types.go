package common

// Canonical node types.
const (
	NodeGeneProduct           = "GENE_PRODUCT"
	NodePathway               = "PATHWAY"
	NodeDisease               = "DISEASE"
	NodePhenotype             = "PHENOTYPE"
	NodeChemical              = "CHEMICAL"
	NodeCellType              = "CELL_TYPE"
	NodeTissue                = "TISSUE"
	NodeAnatomicalSite        = "ANATOMICAL_SITE"
	NodeOrganism              = "ORGANISM"
	NodeVariant               = "VARIANT"
	NodeBiologicalProcess     = "BIOLOGICAL_PROCESS"
	NodeMolecularFunction     = "MOLECULAR_FUNCTION"
	NodeCellularComponent     = "CELLULAR_COMPONENT"
	NodeExperiment            = "EXPERIMENT"
	NodeExperimentalCondition = "EXPERIMENTAL_CONDITION"
	NodeReagent               = "REAGENT"
	NodePublication           = "PUBLICATION"
)

// Relation methods.
const (
	MethodCooc                    = "COOC"
	MethodVerb                    = "VERB"
	MethodPublicationLink         = "PUBLICATION_LINK"
	MethodPublicationConnectivity = "PUBLICATION_CONNECTIVITY"
)

// Relation pattern types.
const (
	PatternCooc     = "COOC"
	PatternVerb     = "VERB"
	PatternEvidence = "EVIDENCE"
)

// Relation types with special handling.
const (
	RelGeneInteractsWithGene      = "GENE_PRODUCT_INTERACTS_WITH_GENE_PRODUCT"
	RelPublicationEvidencesEntity = "PUBLICATION_EVIDENCES_ENTITY"
)

// PublicationID returns the node id of the synthetic publication node of a paper.
func PublicationID(paperID string) string {
	return "PUB_" + paperID
}
