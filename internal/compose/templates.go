package compose

// Built-in templates. Any of these can be replaced by dropping a
// <name>.liquid file into the configured template directory. Variables
// come from candidate attributes (role, posting_link, first_name, ...)
// plus the composer globals (sender_name, sender_signature).

const initialSubject = `{{ sender_headline | default: "Reaching out" }} | {{ role | default: "your open role" }} @ {{ organization | capitalize }}`

const initialBody = `Hi {{ first_name | default: "there" }},

I'm {{ sender_name }}. I came across {{ organization | capitalize }}'s {{ role | default: "open" }} posting{% if posting_link and posting_link != "" %} ({{ posting_link }}){% endif %} and wanted to reach out directly.{% if hook and hook != "" %} {{ hook }}{% endif %}

I believe my background aligns well with what your team is building at {{ organization | capitalize }}, and I'd love to contribute.

Would you be the right person to connect with about the {{ role | default: "open" }} position, or could you point me in the right direction?

Thank you for your time.

Best,
{{ sender_name }}
{{ sender_signature }}`

const followupSubject = `Re: {{ sender_headline | default: "Reaching out" }} | {{ role | default: "your open role" }} @ {{ organization | capitalize }}`

const followupBody = `Hi {{ first_name | default: "there" }},

Just bumping this up in case it got buried — I know how full inboxes get!

I'm still very interested in the {{ role | default: "open" }} position at {{ organization | capitalize }}. Happy to provide anything else you need, or a quick 15-minute call at your convenience.

Thanks again for your time.

Best,
{{ sender_name }}
{{ sender_signature }}`

const summarySubject = `Outreach summary — {{ date }} | {{ sent_total }} sent`

const summaryBody = `Outreach run summary for {{ date }}.

TODAY
  Candidates seen     : {{ seen }}
  Initials sent       : {{ initials_sent }}
  Follow-ups sent     : {{ followups_sent }}
  Denied by policy    : {{ denied }}
  Skipped             : {{ skipped }}

{% if recipients and recipients != "" %}TODAY'S RECIPIENTS
{{ recipients }}

{% endif %}ALL-TIME
  Total sent          : {{ total_sent }}
  Replies received    : {{ total_replies }}
  Reply rate          : {{ reply_rate }}
  Organizations       : {{ organizations_contacted }}

Tip: when someone replies, record it so they are never followed up on:
  outreach mark-replied their@address.com`

func defaultTemplates() map[string]string {
	return map[string]string{
		"initial_subject":  initialSubject,
		"initial_body":     initialBody,
		"followup_subject": followupSubject,
		"followup_body":    followupBody,
		"summary_subject":  summarySubject,
		"summary_body":     summaryBody,
	}
}
