package workflow

import "time"

// DemoComplaints returns the fixture complaints that ship with the demo
// deployment: one per interesting stage of the workflow, filed by the
// seeded demo accounts.
func DemoComplaints() []Complaint {
	return []Complaint{
		{
			ID:          "complaint-1678886400000",
			Title:       "Noise violation from construction site",
			Description: "Constant loud noise from the construction site at 123 Main St, starting before 7 AM on weekdays. This has been happening since [Date]. It disrupts sleep and work.",
			Status:      StatusAssignedToInspector,
			SubmittedBy: "user-1",
			AssignedTo:  "user-2",
			CreatedAt:   time.Date(2023, 3, 15, 10, 0, 0, 0, time.UTC),
			History: []HistoryEntry{
				{Status: StatusSubmitted, Timestamp: time.Date(2023, 3, 15, 10, 0, 0, 0, time.UTC), Actor: "Alice (Complainer)"},
				{Status: StatusAssignedToInspector, Timestamp: time.Date(2023, 3, 15, 12, 0, 0, 0, time.UTC), Actor: "Charlie (Commissioner)"},
			},
			Chat: []ChatMessage{
				{SenderID: "user-2", SenderName: "Bob (Inspector)", Text: "Hello Alice, this is Inspector Bob. I have received your complaint about the noise violation. I will be looking into this matter.", Timestamp: time.Date(2023, 3, 15, 13, 0, 0, 0, time.UTC)},
				{SenderID: "user-1", SenderName: "Alice (Complainer)", Text: "Thank you, Inspector. I appreciate you looking into it. The noise started again this morning at 6:30 AM.", Timestamp: time.Date(2023, 3, 16, 8, 0, 0, 0, time.UTC)},
			},
			Version: 4,
		},
		{
			ID:          "complaint-1678982400000",
			Title:       "Illegal dumping in the park",
			Description: "Large amounts of trash and old furniture have been dumped near the playground at Central Park. It is a health hazard for children.",
			Status:      StatusSubmitted,
			SubmittedBy: "user-1",
			CreatedAt:   time.Date(2023, 3, 16, 16, 0, 0, 0, time.UTC),
			History: []HistoryEntry{
				{Status: StatusSubmitted, Timestamp: time.Date(2023, 3, 16, 16, 0, 0, 0, time.UTC), Actor: "Alice (Complainer)"},
			},
			Version: 1,
		},
		{
			ID:                 "complaint-1679068800000",
			Title:              "Pothole on Elm Street",
			Description:        "There is a very large and dangerous pothole on Elm Street, near the intersection with Oak Avenue. It has already damaged my car's tire.",
			Status:             StatusReportSubmitted,
			SubmittedBy:        "user-1",
			AssignedTo:         "user-5",
			InspectorReport:    "Confirmed the existence of a large pothole at the specified location. It measures approximately 3 feet in diameter and 6 inches deep. Recommending immediate repair.",
			InvestigationNotes: "Visited the site on 2023-03-18. Took photographs and measurements.",
			CreatedAt:          time.Date(2023, 3, 17, 9, 0, 0, 0, time.UTC),
			History: []HistoryEntry{
				{Status: StatusSubmitted, Timestamp: time.Date(2023, 3, 17, 9, 0, 0, 0, time.UTC), Actor: "Alice (Complainer)"},
				{Status: StatusAssignedToInspector, Timestamp: time.Date(2023, 3, 17, 11, 0, 0, 0, time.UTC), Actor: "Charlie (Commissioner)"},
				{Status: StatusInvestigationInProgress, Timestamp: time.Date(2023, 3, 18, 14, 0, 0, 0, time.UTC), Actor: "Eve (Inspector)"},
				{Status: StatusReportSubmitted, Timestamp: time.Date(2023, 3, 19, 10, 0, 0, 0, time.UTC), Actor: "Eve (Inspector)"},
			},
			Chat: []ChatMessage{
				{SenderID: "user-5", SenderName: "Eve (Inspector)", Text: "Hi Alice, I am Inspector Eve. I'll be investigating the pothole issue.", Timestamp: time.Date(2023, 3, 17, 12, 0, 0, 0, time.UTC)},
				{SenderID: "user-4", SenderName: "Diana (Prosecutor)", Text: "Hello both, Prosecutor Diana here. I am reviewing the report. Alice, can you provide an estimate of the damage to your vehicle?", Timestamp: time.Date(2023, 3, 20, 11, 0, 0, 0, time.UTC)},
			},
			Version: 6,
		},
	}
}
