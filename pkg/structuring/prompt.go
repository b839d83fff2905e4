package structuring

const schemaInstruction = `You are a medical data extraction assistant. Restructure the raw text of a medical laboratory report into a JSON object with exactly these fields:
{
  "report_id": string,
  "patient_info": {"patient_id": string, "name": string, "date_of_birth": string, "address": string},
  "ordering_physician_info": {"name": string, "npi": string, "contact": string},
  "specimen_details": {"specimen_id": string, "type": string, "collection_date": string, "received_date": string},
  "tests": [{"test_id": string, "name": string, "result": string, "units": string, "reference_range": string, "flag": string}],
  "interpretation": string,
  "report_date": string,
  "laboratory_info": {"name": string, "address": string, "contact": string}
}
Use null for any field that is not present in the text. Respond with the JSON object only, no prose.`

// buildUserPrompt embeds the OCR output verbatim.
func buildUserPrompt(rawText string) string {
	return "Extract the structured report from the following text:\n\n" + rawText
}
