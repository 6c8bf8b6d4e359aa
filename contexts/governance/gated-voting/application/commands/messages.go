package commands

import (
	"fmt"
	"strings"

	"slothsafe/contexts/governance/gated-voting/domain/entities"
)

// Outbound texts use Telegram legacy Markdown.

const (
	startText                = "Hello! Use /vote to start voting."
	invalidPollSelectionText = "⚠️ Invalid poll selection. Please type the exact poll name."
	alreadyVotedText         = "❌ You have already voted in this poll! You cannot vote again."
	failedText               = "⚠️ Something went wrong while processing your vote. Please try again in a moment."
	noPollsText              = "🗳️ There are no polls open right now."
)

func pollListText(names []string) string {
	if len(names) == 0 {
		return noPollsText
	}
	var b strings.Builder
	b.WriteString("🗳️ **Available Polls:**\n")
	for _, name := range names {
		b.WriteString("📌 ")
		b.WriteString(name)
		b.WriteString("\n")
	}
	b.WriteString("\nPlease type the exact name of the poll you want to vote in.")
	return b.String()
}

func pollSelectedText(poll entities.Poll, terms entities.PaymentTerms) string {
	return fmt.Sprintf(
		"🔹 You selected **%s**.\nSend **%s** to `%s` and reply with your Hedera wallet address.",
		poll.Name, priceLabel(terms), terms.ReceivingWallet,
	)
}

func checkingPaymentText(poll entities.Poll) string {
	return fmt.Sprintf("🔍 Checking your payment for **%s**...", poll.ID)
}

func voteGrantedText(poll entities.Poll) string {
	return "✅ Payment verified! Click here to vote: " + poll.Link
}

func paymentNotFoundText(terms entities.PaymentTerms) string {
	return fmt.Sprintf("❌ No payment found! Ensure you sent **%s** and try again.", priceLabel(terms))
}

func welcomeText(firstName string, terms entities.PaymentTerms) string {
	return fmt.Sprintf("🎉 Welcome, %s! 🦥\n\n", firstName) +
		"🗳️ This is **SlothSafe Voting ONLY**, the official Hedera voting group.\n\n" +
		"**Before you vote:**\n" +
		fmt.Sprintf("1️⃣ Send **%s** to `%s`.\n", priceLabel(terms), terms.ReceivingWallet) +
		"2️⃣ Type `/vote` to start voting.\n" +
		"3️⃣ Verify payment.\n" +
		"4️⃣ Get the voting link.\n\n" +
		"⚡ Available commands:\n" +
		"`/vote` - Start voting\n" +
		"`/help` - Info about the voting system"
}

func helpText(terms entities.PaymentTerms) string {
	return "ℹ️ **How voting works:**\n" +
		fmt.Sprintf("1️⃣ Send **%s** to `%s`.\n", priceLabel(terms), terms.ReceivingWallet) +
		"2️⃣ Type `/vote` and pick a poll by its exact name.\n" +
		"3️⃣ Reply with the Hedera wallet address you paid from.\n" +
		"4️⃣ Once the payment is found you get the voting link.\n\n" +
		"Each account can vote once per poll."
}

func priceLabel(terms entities.PaymentTerms) string {
	unit := "token"
	if terms.VotePrice != 1 {
		unit = "tokens"
	}
	return fmt.Sprintf("%d %s %s", terms.VotePrice, terms.TokenSymbol, unit)
}
