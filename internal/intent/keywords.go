package intent

import "strings"

// Keyword predicates work on folded text (see textfold.Fold): lower-case, no accents, ASCII apostrophes.

func containsAny(folded string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(folded, n) {
			return true
		}
	}

	return false
}

func mentionsReturn(q string) bool {
	return containsAny(q, "retour", "renvoyer", "renvoi")
}

func mentionsDelay(q string) bool {
	return containsAny(q, "delai", "combien de temps", "combien de jours", "jusqu'a quand", "jusqu'au", "quel temps")
}

func mentionsRefund(q string) bool {
	return containsAny(q, "rembours")
}

func mentionsFees(q string) bool {
	return containsAny(q, "frais", "payant", "gratuit", "combien coute", "cout ")
}

func mentionsContact(q string) bool {
	return containsAny(q, "contacter", "vous joindre", "joindre le", "horaires", "service client", "telephone")
}

func asksForHuman(q string) bool {
	return containsAny(q, "humain", "conseiller", "une personne", "quelqu'un")
}

func mentionsItemChange(q string) bool {
	return containsAny(q, "changer", "modifier") &&
		containsAny(q, "article", "taille", "couleur", "commande", "achat") &&
		!containsAny(q, "adresse") &&
		!mentionsReturn(q)
}

func mentionsAddress(q string) bool {
	return containsAny(q, "adresse")
}

func mentionsCancel(q string) bool {
	return containsAny(q, "annuler", "annulation")
}

func mentionsTracking(q string) bool {
	return containsAny(q, "suivi", "tracking", "suivre", "ou est ma commande", "ou en est", "pas recu")
}

func mentionsLate(q string) bool {
	return containsAny(q, "retard")
}

func mentionsShippingFees(q string) bool {
	return containsAny(q, "frais de port", "frais de livraison", "livraison gratuite", "cout de livraison", "port offert")
}

// isReturnDelay is the intent "how long do I have to return an item".
func isReturnDelay(q string) bool {
	return mentionsReturn(q) && mentionsDelay(q) && !mentionsRefund(q) && !mentionsFees(q)
}

func isContact(q string) bool {
	return mentionsContact(q) && !asksForHuman(q)
}
