package extractors

const (
	TupleDelimiter      = "<|>"
	RecordDelimiter     = "##"
	CompletionDelimiter = "<|COMPLETE|>"
)

const extractionPromptTemplate = `
-Goal-
Given a text document that is potentially relevant to this activity and a list of entity types, identify all entities of those types from the text and all relationships among the identified entities.

-Steps-
1. Identify all entities. For each identified entity, extract the following information:
- entity_name: Name of the entity, capitalized
- entity_type: One of the following types: [{{ join ", " .EntityTypes }}]
- entity_description: Comprehensive description of the entity's attributes and activities
Format each entity as ("entity"{{ .TupleDelimiter }}<entity_name>{{ .TupleDelimiter }}<entity_type>{{ .TupleDelimiter }}<entity_description>)

2. From the entities identified in step 1, identify all pairs of (source_entity, target_entity) that are *clearly related* to each other.
For each pair of related entities, extract the following information:
- source_entity: name of the source entity, as identified in step 1
- target_entity: name of the target entity, as identified in step 1
- relationship_description: explanation as to why you think the source entity and the target entity are related to each other
- relationship_strength: a numeric score indicating strength of the relationship between the source entity and target entity
Format each relationship as ("relationship"{{ .TupleDelimiter }}<source_entity>{{ .TupleDelimiter }}<target_entity>{{ .TupleDelimiter }}<relationship_description>{{ .TupleDelimiter }}<relationship_strength>)

3. Return output in English as a single list of all the entities and relationships identified in steps 1 and 2. Use **{{ .RecordDelimiter }}** as the list delimiter.

4. When finished, output {{ .CompletionDelimiter }}

######################
-Example-
######################
Entity_types: PERSON, ORGANIZATION, LOCATION
Text:
Maria Novak joined Helio Labs in Ljubljana last spring, where she leads the battery research team.
######################
Output:
("entity"{{ .TupleDelimiter }}MARIA NOVAK{{ .TupleDelimiter }}PERSON{{ .TupleDelimiter }}Maria Novak leads the battery research team at Helio Labs)
{{ .RecordDelimiter }}
("entity"{{ .TupleDelimiter }}HELIO LABS{{ .TupleDelimiter }}ORGANIZATION{{ .TupleDelimiter }}Helio Labs is a research company with a battery research team)
{{ .RecordDelimiter }}
("entity"{{ .TupleDelimiter }}LJUBLJANA{{ .TupleDelimiter }}LOCATION{{ .TupleDelimiter }}Ljubljana is where Helio Labs is based)
{{ .RecordDelimiter }}
("relationship"{{ .TupleDelimiter }}MARIA NOVAK{{ .TupleDelimiter }}HELIO LABS{{ .TupleDelimiter }}Maria Novak works at Helio Labs and leads its battery team{{ .TupleDelimiter }}9)
{{ .RecordDelimiter }}
("relationship"{{ .TupleDelimiter }}HELIO LABS{{ .TupleDelimiter }}LJUBLJANA{{ .TupleDelimiter }}Helio Labs operates in Ljubljana{{ .TupleDelimiter }}6)
{{ .CompletionDelimiter }}

######################
-Real Data-
######################
Entity_types: {{ join ", " .EntityTypes }}
Text: {{ .InputText }}
######################
Output:
`

type ExtractionPromptData struct {
	EntityTypes         []string
	InputText           string
	TupleDelimiter      string
	RecordDelimiter     string
	CompletionDelimiter string
}

const summaryPromptTemplate = `
You are a helpful assistant responsible for generating a comprehensive summary of the data provided below.
Given one or two entities, and a list of descriptions, all related to the same entity or group of entities.
Please concatenate all of these into a single, comprehensive description. Make sure to include information collected from all the descriptions.
If the provided descriptions are contradictory, please resolve the contradictions and provide a single, coherent summary.
Make sure it is written in third person, and include the entity names so we have the full context.
Limit the final description to {{ .MaxWords }} words.

#######
-Data-
Entities: {{ .EntityName }}
Description List:
{{- range .Descriptions }}
- {{ . }}
{{- end }}
#######
Output:
`

type SummaryPromptData struct {
	EntityName   string
	Descriptions []string
	MaxWords     int
}

const communityReportPromptTemplate = `
You are an AI assistant that helps a human analyst to perform general information discovery.
Information discovery is the process of identifying and assessing relevant information associated with certain entities (e.g., organizations and individuals) within a network.

# Goal
Write a comprehensive report of a community, given a list of entities that belong to the community as well as their relationships. The report will be used to inform decision-makers about information associated with the community and their potential impact.

# Report Structure
The report should include the following sections:
- TITLE: community's name that represents its key entities. The title should be short but specific.
- SUMMARY: An executive summary of the community's overall structure, how its entities are related to each other, and significant information associated with its entities.
- IMPACT SEVERITY RATING: a float score between 0-10 that represents the severity of IMPACT posed by entities within the community.
- RATING EXPLANATION: Give a single sentence explanation of the IMPACT severity rating.
- DETAILED FINDINGS: A list of 5-10 key insights about the community. Each insight should have a short summary followed by multiple paragraphs of explanatory text.

Return output as a well-formed JSON object with the following format:
{
    "title": <report_title>,
    "summary": <executive_summary>,
    "rating": <impact_severity_rating>,
    "rating_explanation": <rating_explanation>,
    "findings": [
        {
            "summary": <insight_1_summary>,
            "explanation": <insight_1_explanation>
        }
    ]
}

Do not include information where the supporting evidence for it is not provided.

# Real Data
Use the following text for your answer. Do not make anything up in your answer.

Text:
{{ .InputText }}

Output:
`

type CommunityReportPromptData struct {
	InputText string
}
