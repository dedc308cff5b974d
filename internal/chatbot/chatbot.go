// Package chatbot is the rule-based assistant behind the public booking
// widget. It is a total function from message text to a canned reply over
// a fixed intent set; it holds no state and has no bearing on appointment
// invariants.
package chatbot

import "strings"

type Intent string

const (
	IntentGreeting     Intent = "greeting"
	IntentDoctors      Intent = "doctors"
	IntentBooking      Intent = "booking"
	IntentAvailability Intent = "availability"
	IntentCancel       Intent = "cancel"
	IntentThanks       Intent = "thanks"
	IntentEmergency    Intent = "emergency"
	IntentFallback     Intent = "fallback"
)

// keyword tables are matched in order; emergency outranks everything so
// "douleur forte" never falls into small talk.
var intentKeywords = []struct {
	intent   Intent
	keywords []string
}{
	{IntentEmergency, []string{"urgence", "urgent", "grave", "douleur forte"}},
	{IntentGreeting, []string{"bonjour", "salut", "hello", "bonsoir", "coucou"}},
	{IntentDoctors, []string{"médecin", "medecin", "docteur", "liste", "spécialité", "specialite"}},
	{IntentBooking, []string{"rendez-vous", "rdv", "réserver", "reserver", "prendre"}},
	{IntentAvailability, []string{"disponible", "créneau", "creneau", "horaire", "libre"}},
	{IntentCancel, []string{"annuler", "annulation", "supprimer"}},
	{IntentThanks, []string{"merci", "thanks", "au revoir", "bye"}},
}

var responses = map[Intent]string{
	IntentGreeting: "Bonjour ! Je suis l'assistant de la clinique.\n\n" +
		"Je peux vous aider à :\n" +
		"• voir la liste des médecins\n" +
		"• prendre un rendez-vous\n" +
		"• vérifier les disponibilités\n" +
		"• annuler un rendez-vous\n\n" +
		"Comment puis-je vous aider ?",
	IntentDoctors: "Vous trouverez la liste de nos médecins et leurs spécialités " +
		"sur la page de réservation. Choisissez un médecin pour voir ses créneaux disponibles.",
	IntentBooking: "Pour prendre un rendez-vous, j'ai besoin de :\n\n" +
		"1. la spécialité souhaitée\n" +
		"2. la date préférée\n" +
		"3. l'heure préférée\n" +
		"4. votre nom complet\n" +
		"5. votre numéro de téléphone\n\n" +
		"Quelle spécialité souhaitez-vous consulter ?",
	IntentAvailability: "Sélectionnez un médecin et une date sur la page de réservation " +
		"pour afficher les créneaux libres. Les disponibilités sont mises à jour en temps réel.",
	IntentCancel: "Pour annuler votre rendez-vous, indiquez-moi :\n\n" +
		"• le numéro du rendez-vous, ou\n" +
		"• votre numéro de téléphone pour retrouver vos rendez-vous",
	IntentThanks: "Je vous en prie !\n\n" +
		"Informations pratiques :\n" +
		"• Adresse : 123 Avenue de la Santé, Paris\n" +
		"• Téléphone : 01 23 45 67 89\n" +
		"• Horaires : Lundi-Vendredi, 9h-17h\n\n" +
		"Bonne journée !",
	IntentEmergency: "ATTENTION - URGENCE MÉDICALE\n\n" +
		"Si vous êtes en situation d'urgence :\n" +
		"• appelez le 15 (SAMU)\n" +
		"• ou le 112 (urgences européennes)\n\n" +
		"Si ce n'est pas une urgence vitale, je peux vous aider à trouver " +
		"le prochain créneau disponible.",
	IntentFallback: "Je suis là pour vous aider avec vos rendez-vous médicaux.\n\n" +
		"Essayez :\n" +
		"• \"médecins\" pour la liste des médecins\n" +
		"• \"rendez-vous\" pour réserver\n" +
		"• \"disponibilités\" pour les créneaux libres\n" +
		"• \"annuler\" pour annuler un rendez-vous",
}

// Detect classifies a message into an intent by keyword lookup.
func Detect(message string) Intent {
	message = strings.ToLower(message)
	for _, entry := range intentKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(message, kw) {
				return entry.intent
			}
		}
	}
	return IntentFallback
}

// Respond returns the canned reply for a message.
func Respond(message string) string {
	return responses[Detect(message)]
}
