package browser

// snapshotScript serializes the live document with layout, computed style and
// form state, and resolves elementFromPoint at the clipped centre of every
// candidate so occlusion is decided by the browser. The element list is kept on
// window so attribute writes can be committed back by index.
const snapshotScript = `(opts) => {
	const els = [];
	const index = new Map();
	const vw = window.innerWidth, vh = window.innerHeight;
	const skipText = new Set(['script', 'style', 'noscript', 'template']);

	const serialize = (node) => {
		if (node.nodeType === Node.TEXT_NODE) return { x: node.data };
		if (node.nodeType !== Node.ELEMENT_NODE) return null;

		const i = els.length;
		els.push(node);
		index.set(node, i);

		const cs = getComputedStyle(node);
		const r = node.getBoundingClientRect();
		const out = {
			t: node.localName,
			a: Array.from(node.attributes, (a) => [a.name, a.value]),
			r: [r.x, r.y, r.width, r.height],
			s: [cs.display, cs.visibility, cs.opacity, cs.pointerEvents, cs.cursor],
			c: [],
		};
		if ('disabled' in node) out.d = !!node.disabled;
		if (node instanceof HTMLInputElement || node instanceof HTMLTextAreaElement || node instanceof HTMLSelectElement) {
			out.v = String(node.value ?? '');
		}
		if (node instanceof HTMLInputElement && (node.type === 'checkbox' || node.type === 'radio')) {
			out.k = node.checked;
		}
		if (typeof node.onclick === 'function') out.h = true;
		if (!skipText.has(node.localName)) {
			for (const child of node.childNodes) {
				const c = serialize(child);
				if (c) out.c.push(c);
			}
		}
		return out;
	};

	const root = document.documentElement ? serialize(document.documentElement) : null;

	const hits = [];
	if (root && opts && opts.selector) {
		for (const el of document.querySelectorAll(opts.selector)) {
			const r = el.getBoundingClientRect();
			const left = Math.max(r.left, 0), top = Math.max(r.top, 0);
			const right = Math.min(r.right, vw), bottom = Math.min(r.bottom, vh);
			if (right <= left || bottom <= top) continue;
			const x = left + (right - left) / 2, y = top + (bottom - top) / 2;
			const hit = document.elementFromPoint(x, y);
			hits.push([x, y, hit && index.has(hit) ? index.get(hit) : -1]);
		}
	}

	window.__aiRegistrySnapshot = els;
	return JSON.stringify({
		url: location.href,
		title: document.title,
		viewport: [vw, vh, window.scrollX, window.scrollY],
		root,
		hits,
	});
}`

// commitScript applies attribute writes to the elements of the last snapshot.
// It returns how many writes found their element still attached.
const commitScript = `(writes) => {
	const els = window.__aiRegistrySnapshot || [];
	let applied = 0;
	for (const [i, name, value] of writes) {
		const el = els[i];
		if (!el || !el.isConnected) continue;
		el.setAttribute(name, value);
		applied++;
	}
	return applied;
}`

// hookScript installs the mutation observer and history hooks. Events go to the
// binding named by bindingName when the driver exposes one, otherwise they queue
// on window for polling.
const hookScript = `(() => {
	if (window.__aiRegistryHooked) return;
	window.__aiRegistryHooked = true;
	window.__aiRegistryQueue = [];

	const emit = (event) => {
		const binding = window.__aiRegistryBinding;
		if (typeof binding === 'function') {
			try {
				const p = binding(JSON.stringify(event));
				if (p && typeof p.catch === 'function') p.catch(() => {});
				return;
			} catch (e) {}
		}
		window.__aiRegistryQueue.push(event);
	};

	const shallow = (node) => node && node.nodeType === Node.ELEMENT_NODE ? node.cloneNode(false).outerHTML : '';

	for (const [method, kind] of [['pushState', 'push'], ['replaceState', 'replace']]) {
		const original = history[method];
		history[method] = function (...args) {
			const result = original.apply(this, args);
			emit({ type: 'navigation', kind, url: location.href });
			return result;
		};
	}
	window.addEventListener('popstate', () => emit({ type: 'navigation', kind: 'pop', url: location.href }));

	const observe = () => {
		new MutationObserver((mutations) => {
			const records = [];
			for (const m of mutations) {
				if (m.type === 'childList') {
					const added = [];
					m.addedNodes.forEach((n) => {
						if (n.nodeType === Node.ELEMENT_NODE) added.push(n.outerHTML);
					});
					if (added.length) records.push({ kind: 'childList', target: shallow(m.target), added });
				} else if (m.type === 'attributes') {
					records.push({ kind: 'attributes', target: shallow(m.target), attr: m.attributeName });
				}
			}
			if (records.length) emit({ type: 'mutations', records });
		}).observe(document.documentElement, {
			childList: true,
			subtree: true,
			attributes: true,
			attributeFilter: ['disabled', 'hidden', 'style', 'class'],
		});
	};
	if (document.documentElement) observe();
	else document.addEventListener('DOMContentLoaded', observe, { once: true });
})()`

// drainScript returns and clears the queued hook events.
const drainScript = `() => {
	const queue = Array.isArray(window.__aiRegistryQueue) ? window.__aiRegistryQueue : [];
	window.__aiRegistryQueue = [];
	return JSON.stringify(queue);
}`
