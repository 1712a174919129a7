package ai

const EntityExtractionPrompt = `
# Task Context
You are a biomedical named entity recognizer. You will be given a single sentence from a scientific paper.

# Background Data
Sentence:
%s

# Detailed Task Description & Rules
- Extract every biomedical entity mentioned in the sentence.
- Copy the entity text exactly as it appears in the sentence, including case and punctuation.
- Assign each entity exactly one label from this list:
  GENE_OR_GENE_PRODUCT, CHEMICAL, DISEASE, PATHWAY, BIOLOGICAL_PROCESS, MOLECULAR_FUNCTION,
  CELLULAR_COMPONENT, CELL_TYPE, TISSUE, ANATOMICAL_SITE, ORGANISM, VARIANT, PHENOTYPE
- Do not extract section names, figure or table references, units, numbers or generic words such as "increase" or "results".
- Do not invent entities that are not in the sentence.

# Examples
Sentence: "TP53 inhibits apoptosis in cancer cells exposed to microgravity."
Entities:
- "TP53" GENE_OR_GENE_PRODUCT
- "apoptosis" BIOLOGICAL_PROCESS
- "cancer cells" CELL_TYPE
- "microgravity" PHENOTYPE

# Immediate Task Description or Request
Return a JSON object with the list of entities found in the sentence. Return an empty list if there are none.
`
