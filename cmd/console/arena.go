package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/jwebster45206/combat-engine/internal/logger"
	"github.com/jwebster45206/combat-engine/internal/scripting"
	"github.com/jwebster45206/combat-engine/pkg/actor"
	"github.com/jwebster45206/combat-engine/pkg/combat"
	"github.com/jwebster45206/combat-engine/pkg/strategy"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	playerID   = "you"
	opponentID = "rival"
)

// Arena is a two-fighter sparring ring driven from the console. The player
// submits intents; the rival fights on its strategy and answers proposals on
// the following tick.
type Arena struct {
	engine    *combat.Engine
	rec       *combat.Recorder
	templates map[string]*strategy.Template
	names     map[string]string
}

func NewArena(settings combat.Settings, seed uint64, you, rival *actor.FighterSpec, templates []*strategy.Template) (*Arena, error) {
	rec := &combat.Recorder{}
	log := logger.Discard()
	engine := combat.New(settings, actor.NewChecker(seed),
		combat.WithSeed(seed),
		combat.WithNotifier(rec),
		combat.WithLogger(log),
		combat.WithEligibilityHook(scripting.NewLuaHook(log)),
	)

	a := &Arena{
		engine:    engine,
		rec:       rec,
		templates: make(map[string]*strategy.Template),
		names:     make(map[string]string),
	}
	for _, t := range templates {
		a.templates[strings.ToLower(t.Name)] = t
	}

	for _, entry := range []struct {
		id, side string
		spec     *actor.FighterSpec
	}{{playerID, "player", you}, {opponentID, "rival", rival}} {
		spec := *entry.spec
		spec.ID = entry.id
		spec.Side = entry.side
		f, err := actor.NewFighterFromSpec(&spec)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", entry.id, err)
		}
		if _, err := engine.Register(f.CombatSpec()); err != nil {
			return nil, err
		}
		a.names[entry.id] = titleName(f.Name())
	}
	return a, nil
}

func titleName(name string) string {
	return cases.Title(language.English).String(name)
}

// Step answers the rival's proposals, advances one tick and returns what happened.
func (a *Arena) Step(ctx context.Context) []combat.Event {
	for _, p := range a.engine.Proposals(opponentID) {
		// the rival always takes the offer
		_ = a.engine.Accept(ctx, p.ID, opponentID)
	}
	a.engine.Tick(ctx)
	evs := a.rec.Events()
	a.rec.Reset()
	return evs
}

// Drain returns events emitted outside Step, e.g. by an executed intent.
func (a *Arena) Drain() []combat.Event {
	evs := a.rec.Events()
	a.rec.Reset()
	return evs
}

// Command applies one line of player input and returns a short confirmation.
func (a *Arena) Command(ctx context.Context, line string) (string, error) {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return "", nil
	}
	verb, args := fields[0], fields[1:]
	arg := func(i int) string {
		if i < len(args) {
			return args[i]
		}
		return ""
	}

	switch verb {
	case "mode":
		mode, err := strategy.ParseMode(arg(0))
		if err != nil {
			return "", err
		}
		if err := a.engine.SetMode(ctx, playerID, mode); err != nil {
			return "", err
		}
		return "Mode set to " + mode.String(), nil

	case "template":
		t, ok := a.templates[strings.Join(args, " ")]
		if !ok {
			return "", fmt.Errorf("no template named %q", strings.Join(args, " "))
		}
		if err := a.engine.ApplyTemplate(ctx, playerID, *t); err != nil {
			return "", err
		}
		return "Applied template " + t.Name, nil

	case "propose":
		kind, err := combat.ParseProposalKind(arg(0))
		if err != nil {
			return "", err
		}
		if _, err := a.engine.Propose(ctx, kind, playerID, opponentID); err != nil {
			return "", err
		}
		return "Offered " + kind.String(), nil

	case "cancel":
		if err := a.engine.CancelPending(playerID); err != nil {
			return "", err
		}
		return "Cancelled queued intent", nil

	case "leave":
		if err := a.engine.Leave(ctx, playerID); err != nil {
			return "", err
		}
		return "You step out of the fight", nil
	}

	in, err := parseIntent(verb, args)
	if err != nil {
		return "", err
	}
	disp, err := a.engine.Submit(ctx, playerID, in)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s: %s", in.Kind, disp), nil
}

// parseIntent maps console verbs onto intents aimed at the rival.
func parseIntent(verb string, args []string) (combat.Intent, error) {
	aliases := map[string]string{"finish": "coup_de_grace", "lock": "lock_limb", "hit": "attack"}
	if full, ok := aliases[verb]; ok {
		verb = full
	}
	kind, err := combat.ParseIntentKind(verb)
	if err != nil {
		return combat.Intent{}, fmt.Errorf("unknown command %q (try /help)", verb)
	}

	in := combat.Intent{Kind: kind, Target: opponentID}
	switch kind {
	case combat.IntentUse:
		if len(args) == 0 {
			return combat.Intent{}, fmt.Errorf("use needs a move name")
		}
		in.Move = strings.Join(args, " ")
	case combat.IntentLockLimb:
		if len(args) == 0 {
			return combat.Intent{}, fmt.Errorf("lock needs a limb")
		}
		in.Limb = args[0]
	case combat.IntentFlee, combat.IntentDefend, combat.IntentStand, combat.IntentFire:
		in.Target = ""
	}
	return in, nil
}

func (a *Arena) name(id string) string {
	if n, ok := a.names[id]; ok {
		return n
	}
	return id
}

// Describe renders an event as one line of fight log. Events not worth
// showing return "".
func (a *Arena) Describe(ev combat.Event) string {
	who, target := a.name(ev.Actor), a.name(ev.Target)
	switch ev.Type {
	case combat.EventSessionStarted:
		if friendly, _ := ev.Detail["friendly"].(bool); friendly {
			return "A friendly bout begins."
		}
		return "The fight begins!"
	case combat.EventSessionEnded:
		return fmt.Sprintf("The fight is over (%v).", ev.Detail["reason"])
	case combat.EventMoveAttempted:
		if ev.Target != "" {
			return fmt.Sprintf("%s tries %s on %s.", who, ev.Move, target)
		}
		return fmt.Sprintf("%s tries %s.", who, ev.Move)
	case combat.EventMoveResolved:
		if ok, _ := ev.Detail["success"].(bool); ok {
			return fmt.Sprintf("  %s lands.", ev.Move)
		}
		return fmt.Sprintf("  %s misses.", ev.Move)
	case combat.EventMoveSkipped:
		return fmt.Sprintf("%s holds back: %v.", who, ev.Detail["reason"])
	case combat.EventMoveCancelled:
		return fmt.Sprintf("%s abandons %s.", who, ev.Move)
	case combat.EventModeChanged:
		return fmt.Sprintf("%s switches to %v.", who, ev.Detail["to"])
	case combat.EventStoodUp:
		return fmt.Sprintf("%s gets up.", who)
	case combat.EventClosedIn:
		return fmt.Sprintf("%s closes in.", who)
	case combat.EventGrappleFormed:
		return fmt.Sprintf("%s grabs hold of %s!", who, target)
	case combat.EventLimbLocked:
		return fmt.Sprintf("%s locks %s's %v.", who, target, ev.Detail["limb"])
	case combat.EventGrappleReleased:
		return fmt.Sprintf("%s's hold on %s breaks (%v).", who, target, ev.Detail["cause"])
	case combat.EventAimStarted:
		return fmt.Sprintf("%s takes aim at %s with %s.", who, target, ev.Move)
	case combat.EventAimLost:
		return fmt.Sprintf("%s loses aim: %v.", who, ev.Detail["reason"])
	case combat.EventFired:
		return fmt.Sprintf("%s fires %s at %s.", who, ev.Move, target)
	case combat.EventPreparationStarted:
		return fmt.Sprintf("%s readies a finishing blow on %s.", who, target)
	case combat.EventPreparationCompleted:
		return fmt.Sprintf("%s delivers the finishing blow.", who)
	case combat.EventPreparationCancelled:
		return fmt.Sprintf("%s's finishing blow is interrupted.", who)
	case combat.EventProposalCreated:
		return fmt.Sprintf("%s offers %s a %v.", who, target, ev.Detail["kind"])
	case combat.EventProposalAccepted:
		return fmt.Sprintf("%s accepts the %v.", who, ev.Detail["kind"])
	case combat.EventProposalRejected:
		return fmt.Sprintf("%s refuses the %v.", who, ev.Detail["kind"])
	case combat.EventProposalExpired:
		return fmt.Sprintf("The %v offer lapses.", ev.Detail["kind"])
	case combat.EventLeft:
		return fmt.Sprintf("%s leaves the fight.", who)
	}
	return ""
}

// Status summarizes both fighters for the side panel.
func (a *Arena) Status() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Tick: %d\n\n", a.engine.CurrentTick())

	for _, id := range []string{playerID, opponentID} {
		c, ok := a.engine.Combatant(id)
		if !ok {
			continue
		}
		fmt.Fprintf(&sb, "%s\n", a.name(id))
		if f, ok := c.Body().(*actor.Fighter); ok {
			fmt.Fprintf(&sb, "  HP: %d/%d\n", f.HP(), f.Spec.MaxHP)
		}
		l := c.Ledger()
		fmt.Fprintf(&sb, "  Stamina: %.1f/%.1f\n", l.Stamina(), l.MaxStamina())
		fmt.Fprintf(&sb, "  Mode: %s\n", c.Mode())
		if l.Aim() > 0 {
			fmt.Fprintf(&sb, "  Aim: %.2f\n", l.Aim())
		}
		switch {
		case !c.Body().Alive():
			sb.WriteString("  Dead\n")
		case !c.Body().Conscious():
			sb.WriteString("  Unconscious\n")
		case c.Body().Prone():
			sb.WriteString("  Prone\n")
		}
		if in, ok := c.Pending(); ok {
			fmt.Fprintf(&sb, "  Queued: %s\n", in.Kind)
		}
		sb.WriteString("\n")
	}

	if c, ok := a.engine.Combatant(playerID); ok && c.Session() != nil {
		s := c.Session()
		fmt.Fprintf(&sb, "Session: %s\n", s.State())
		for _, g := range s.Grapples() {
			fmt.Fprintf(&sb, "  %s holds %s\n", a.name(g.Holder.ID()), a.name(g.Held.ID()))
		}
	}
	return sb.String()
}
